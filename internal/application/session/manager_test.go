package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdamCoscia/KnowledgeVIS/internal/config"
	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/messaging/kafka"
	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/monitoring/logging"
	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/monitoring/prometheus"
	"github.com/AdamCoscia/KnowledgeVIS/internal/testutil"
	"github.com/AdamCoscia/KnowledgeVIS/pkg/errors"
)

func TestManager_CreateGetDelete(t *testing.T) {
	events := &recordingEmitter{}
	logger := testutil.NewMockLogger()
	m := NewManager(&fakeService{}, config.SessionConfig{IdleTimeout: time.Minute},
		WithEvents(events), WithLogger(logger))
	defer m.Close(context.Background())

	s := m.Create()
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, []string{s.ID}, m.IDs())

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, m.Delete(s.ID))
	assert.Zero(t, m.Len())
	_, err = m.Get(s.ID)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSessionNotFound))
	assert.True(t, errors.IsCode(m.Delete(s.ID), errors.ErrCodeSessionNotFound))

	assert.Equal(t, []kafka.EventType{kafka.EventSessionCreated, kafka.EventSessionClosed}, events.Types())
	assert.True(t, logger.HasMessage("info", "session created"))
	assert.True(t, logger.HasMessage("info", "session ended"))
}

func TestManager_SweepExpiresIdleSessions(t *testing.T) {
	events := &recordingEmitter{}
	m := NewManager(&fakeService{}, config.SessionConfig{IdleTimeout: 50 * time.Millisecond}, WithEvents(events))
	defer m.Close(context.Background())

	idle := m.Create()
	busy := m.Create()
	for i := 0; i < 4; i++ {
		time.Sleep(20 * time.Millisecond)
		_, err := m.Get(busy.ID)
		require.NoError(t, err)
	}
	m.Sweep()

	_, err := m.Get(idle.ID)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSessionNotFound))
	_, err = m.Get(busy.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, events.Count(kafka.EventSessionClosed))
}

func TestManager_SweeperStopsOnClose(t *testing.T) {
	events := &recordingEmitter{}
	m := NewManager(&fakeService{}, config.SessionConfig{
		IdleTimeout:     10 * time.Millisecond,
		CleanupInterval: 5 * time.Millisecond,
	}, WithEvents(events))

	m.Create()
	require.Eventually(t, func() bool { return events.Count(kafka.EventSessionClosed) == 1 },
		time.Second, 5*time.Millisecond)
	require.NoError(t, m.Close(context.Background()))
	require.NoError(t, m.Close(context.Background()))
}

func TestManager_CloseEndsEverySession(t *testing.T) {
	events := &recordingEmitter{}
	m := NewManager(&fakeService{}, config.SessionConfig{}, WithEvents(events))
	m.Create()
	m.Create()

	require.NoError(t, m.Close(context.Background()))
	assert.Zero(t, m.Len())
	assert.Equal(t, 2, events.Count(kafka.EventSessionClosed))
}

func TestManager_ReportsActiveSessions(t *testing.T) {
	col, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "test"}, logging.NewNopLogger())
	require.NoError(t, err)
	m := NewManager(&fakeService{}, config.SessionConfig{}, WithMetrics(prometheus.NewAppMetrics(col)))
	defer m.Close(context.Background())

	m.Create()
	s := m.Create()
	require.NoError(t, m.Delete(s.ID))

	families, err := col.Gatherer().Gather()
	require.NoError(t, err)
	var value float64
	for _, f := range families {
		if strings.HasSuffix(f.GetName(), "active_sessions") {
			value = f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	assert.Equal(t, 1.0, value)
}
