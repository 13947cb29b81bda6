package kafka

import (
	"context"
	"encoding/json"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/AdamCoscia/KnowledgeVIS/pkg/errors"
)

// EventType names a session lifecycle event.
type EventType string

const (
	EventSessionCreated  EventType = "session.created"
	EventSessionClosed   EventType = "session.closed"
	EventQueryCompleted  EventType = "query.completed"
	EventQueryFailed     EventType = "query.failed"
	EventFilterChanged   EventType = "filter.changed"
	EventSubjectDragged  EventType = "subject.dragged"
	EventDatasetExported EventType = "dataset.exported"
)

const eventSource = "knowledgevis"

// Event is the envelope written to the events topic.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	SessionID string          `json:"session_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEvent builds an envelope around payload, which may be nil.
func NewEvent(t EventType, sessionID string, payload interface{}) (*Event, error) {
	e := &Event{
		ID:        uuid.New().String(),
		Type:      t,
		Source:    eventSource,
		Timestamp: time.Now().UTC(),
		SessionID: sessionID,
	}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "marshal event payload")
		}
		e.Payload = b
	}
	return e, nil
}

// ToMessage encodes the event for topic. Messages are keyed by session so a
// session's events stay on one partition.
func (e *Event) ToMessage(topic string) (*ProducerMessage, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "marshal event")
	}
	key := e.SessionID
	if key == "" {
		key = e.ID
	}
	return &ProducerMessage{
		Topic:     topic,
		Key:       []byte(key),
		Value:     b,
		Timestamp: e.Timestamp,
		Headers: map[string]string{
			"event_type": string(e.Type),
			"event_id":   e.ID,
		},
	}, nil
}

// DecodeEvent parses a fetched message.
func DecodeEvent(msg kafka.Message) (*Event, error) {
	var e Event
	if err := json.Unmarshal(msg.Value, &e); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decode event")
	}
	if e.Type == "" {
		return nil, errors.New(errors.ErrCodeValidation, "event without type")
	}
	return &e, nil
}

// ConnInterface abstracts the controller connection used for topic admin.
type ConnInterface interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	Close() error
}

// TopicManager creates the events topic when it is missing.
type TopicManager struct {
	conn ConnInterface
}

func NewTopicManager(conn ConnInterface) *TopicManager {
	return &TopicManager{conn: conn}
}

// DialTopicManager connects to the cluster controller through broker.
func DialTopicManager(ctx context.Context, broker string) (*TopicManager, error) {
	conn, err := kafka.DialContext(ctx, "tcp", broker)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessagingError, "dial broker")
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessagingError, "lookup controller")
	}
	addr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	ctrl, err := kafka.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessagingError, "dial controller")
	}
	return NewTopicManager(ctrl), nil
}

// EnsureTopic creates topic; an existing topic is not an error.
func (m *TopicManager) EnsureTopic(topic string, partitions, replication int) error {
	if topic == "" {
		return errors.New(errors.ErrCodeValidation, "topic required")
	}
	if partitions <= 0 {
		partitions = 1
	}
	if replication <= 0 {
		replication = 1
	}
	err := m.conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: replication,
	})
	if err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return errors.Wrap(err, errors.ErrCodeMessagingError, "create topic "+topic)
	}
	return nil
}

func (m *TopicManager) Close() error {
	return m.conn.Close()
}
