package kafka

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_ToMessageAndBack(t *testing.T) {
	evt, err := NewEvent(EventQueryCompleted, "s-42", map[string]int{"predictions": 7})
	require.NoError(t, err)
	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, "knowledgevis", evt.Source)

	msg, err := evt.ToMessage("knowledgevis.events")
	require.NoError(t, err)
	assert.Equal(t, []byte("s-42"), msg.Key)
	assert.Equal(t, "query.completed", msg.Headers["event_type"])

	back, err := DecodeEvent(kafka.Message{Value: msg.Value})
	require.NoError(t, err)
	assert.Equal(t, evt.ID, back.ID)
	assert.Equal(t, EventQueryCompleted, back.Type)
	assert.JSONEq(t, `{"predictions":7}`, string(back.Payload))
}

func TestEvent_KeyFallsBackToID(t *testing.T) {
	evt, err := NewEvent(EventSessionClosed, "", nil)
	require.NoError(t, err)
	assert.Nil(t, evt.Payload)

	msg, err := evt.ToMessage("t")
	require.NoError(t, err)
	assert.Equal(t, []byte(evt.ID), msg.Key)
}

func TestNewEvent_UnencodablePayload(t *testing.T) {
	_, err := NewEvent(EventFilterChanged, "s", map[string]interface{}{"f": func() {}})
	assert.Error(t, err)
}

func TestDecodeEvent_Rejects(t *testing.T) {
	_, err := DecodeEvent(kafka.Message{Value: []byte("not json")})
	assert.Error(t, err)
	_, err = DecodeEvent(kafka.Message{Value: []byte(`{"id":"x"}`)})
	assert.Error(t, err)
}

type mockConn struct {
	created []kafka.TopicConfig
	err     error
	closed  bool
}

func (m *mockConn) CreateTopics(topics ...kafka.TopicConfig) error {
	m.created = append(m.created, topics...)
	return m.err
}

func (m *mockConn) Close() error {
	m.closed = true
	return nil
}

func TestTopicManager_EnsureTopic(t *testing.T) {
	conn := &mockConn{}
	tm := NewTopicManager(conn)

	require.NoError(t, tm.EnsureTopic("events", 0, 0))
	require.Len(t, conn.created, 1)
	assert.Equal(t, kafka.TopicConfig{Topic: "events", NumPartitions: 1, ReplicationFactor: 1}, conn.created[0])

	assert.Error(t, tm.EnsureTopic("", 1, 1))

	conn.err = kafka.TopicAlreadyExists
	assert.NoError(t, tm.EnsureTopic("events", 3, 1))

	conn.err = errors.New("no controller")
	assert.Error(t, tm.EnsureTopic("events", 3, 1))

	require.NoError(t, tm.Close())
	assert.True(t, conn.closed)
}

func TestEvent_JSONShape(t *testing.T) {
	evt, err := NewEvent(EventSubjectDragged, "s", nil)
	require.NoError(t, err)
	b, err := json.Marshal(evt)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, "subject.dragged", raw["type"])
	assert.Equal(t, "s", raw["session_id"])
	assert.NotContains(t, raw, "payload")
}
