package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/AdamCoscia/KnowledgeVIS/internal/application/query"
	"github.com/AdamCoscia/KnowledgeVIS/internal/application/views"
	"github.com/AdamCoscia/KnowledgeVIS/internal/config"
	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/messaging/kafka"
	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/monitoring/logging"
	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/monitoring/prometheus"
)

// Manager holds sessions in memory and expires them after an idle period.
// Any access through Get counts as activity.
type Manager struct {
	sessions *gocache.Cache
	queries  query.Service
	idle     time.Duration
	sweep    time.Duration
	initial  int

	coordOpts []views.CoordinatorOption
	events    kafka.Emitter
	logger    logging.Logger
	metrics   *prometheus.AppMetrics

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

type ManagerOption func(*Manager)

func WithLogger(l logging.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

func WithMetrics(metrics *prometheus.AppMetrics) ManagerOption {
	return func(m *Manager) { m.metrics = metrics }
}

func WithEvents(e kafka.Emitter) ManagerOption {
	return func(m *Manager) { m.events = e }
}

// WithCoordinatorOptions adds options applied to every new coordinator.
func WithCoordinatorOptions(opts ...views.CoordinatorOption) ManagerOption {
	return func(m *Manager) { m.coordOpts = append(m.coordOpts, opts...) }
}

// NewManager returns a manager. A positive cfg.CleanupInterval starts a
// sweeper goroutine that Close stops; with zero, expired sessions are only
// removed by Sweep.
func NewManager(queries query.Service, cfg config.SessionConfig, opts ...ManagerOption) *Manager {
	idle := cfg.IdleTimeout
	if idle <= 0 {
		idle = gocache.NoExpiration
	}
	m := &Manager{
		sessions: gocache.New(idle, 0),
		queries:  queries,
		idle:     idle,
		sweep:    cfg.CleanupInterval,
		initial:  cfg.InitialSubjects,
		events:   kafka.NopEmitter{},
		logger:   logging.NewNopLogger(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.sessions.OnEvicted(m.onEvicted)

	if m.sweep > 0 {
		go m.sweeper()
	} else {
		close(m.done)
	}
	return m
}

func (m *Manager) sweeper() {
	defer close(m.done)
	t := time.NewTicker(m.sweep)
	defer t.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-t.C:
			m.Sweep()
		}
	}
}

// Sweep closes every session idle for longer than the timeout.
func (m *Manager) Sweep() {
	m.sessions.DeleteExpired()
}

func (m *Manager) onEvicted(id string, v interface{}) {
	s, ok := v.(*Session)
	if !ok {
		return
	}
	s.close()
	m.events.Emit(kafka.EventSessionClosed, id, nil)
	m.logger.Info("session ended", logging.Session(id), logging.Int("active", m.sessions.ItemCount()))
	m.reportActive()
}

func (m *Manager) reportActive() {
	if m.metrics != nil {
		m.metrics.SetActiveSessions(m.sessions.ItemCount())
	}
}

// Create starts a session with an empty coordinator.
func (m *Manager) Create() *Session {
	id := uuid.New().String()
	logger := m.logger.With(logging.Session(id))

	opts := append([]views.CoordinatorOption{views.WithLogger(logger)}, m.coordOpts...)
	if m.metrics != nil {
		opts = append(opts, views.WithMetrics(m.metrics))
	}
	if m.initial > 0 {
		opts = append(opts, views.WithInitialSubjects(m.initial))
	}

	s := &Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		coord:     views.NewCoordinator(opts...),
		queries:   m.queries,
		events:    m.events,
		logger:    logger,
	}
	m.sessions.SetDefault(id, s)
	m.events.Emit(kafka.EventSessionCreated, id, nil)
	logger.Info("session created", logging.Int("active", m.sessions.ItemCount()))
	m.reportActive()
	return s
}

// Get returns the session and pushes its expiry back.
func (m *Manager) Get(id string) (*Session, error) {
	v, ok := m.sessions.Get(id)
	if !ok {
		return nil, errNotFound.WithDetail(id)
	}
	m.sessions.SetDefault(id, v)
	return v.(*Session), nil
}

// Delete ends the session.
func (m *Manager) Delete(id string) error {
	if _, ok := m.sessions.Get(id); !ok {
		return errNotFound.WithDetail(id)
	}
	m.sessions.Delete(id)
	return nil
}

// IDs lists the live sessions.
func (m *Manager) IDs() []string {
	items := m.sessions.Items()
	out := make([]string, 0, len(items))
	for id := range items {
		out = append(out, id)
	}
	return out
}

// Len is the number of live sessions.
func (m *Manager) Len() int { return m.sessions.ItemCount() }

// Close stops the sweeper and ends every session.
func (m *Manager) Close(ctx context.Context) error {
	m.stopOnce.Do(func() {
		select {
		case <-m.done:
		default:
			close(m.stop)
		}
	})
	select {
	case <-m.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	for id := range m.sessions.Items() {
		m.sessions.Delete(id)
	}
	return nil
}
