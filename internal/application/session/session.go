// Package session keeps one view coordinator per interactive client and
// serializes every operation on it.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/AdamCoscia/KnowledgeVIS/internal/application/query"
	"github.com/AdamCoscia/KnowledgeVIS/internal/application/views"
	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/messaging/kafka"
	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/monitoring/logging"
	"github.com/AdamCoscia/KnowledgeVIS/pkg/client"
	"github.com/AdamCoscia/KnowledgeVIS/pkg/errors"
)

// Session wraps a Coordinator. The coordinator is not safe for concurrent
// use, so every call goes through the session mutex. Backend fetches run
// outside the lock.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu      sync.Mutex
	coord   *views.Coordinator
	cancel  context.CancelFunc
	last    *QueryInfo
	queries query.Service
	events  kafka.Emitter
	logger  logging.Logger
}

// QueryInfo describes the last query that loaded a dataset.
type QueryInfo struct {
	Request     *client.Request `json:"request"`
	Cached      bool            `json:"cached"`
	Duration    time.Duration   `json:"duration"`
	CompletedAt time.Time       `json:"completedAt"`
}

type queryPayload struct {
	Model       string `json:"model"`
	TopK        int    `json:"topk"`
	Subjects    int    `json:"subjects"`
	Predictions int    `json:"predictions,omitempty"`
	Cached      bool   `json:"cached,omitempty"`
	DurationMS  int64  `json:"durationMs,omitempty"`
	Error       string `json:"error,omitempty"`
}

func countSubjects(req *client.Request) int {
	n := 0
	for _, g := range req.Groups {
		n += len(g.Subjects)
	}
	return n
}

// Query runs q and loads its dataset. Only one query runs per session; a
// second one fails with a query-in-flight error. A response that arrives
// after Cancel or after a newer query is discarded and reported as stale.
func (s *Session) Query(ctx context.Context, q query.Query) (*QueryInfo, error) {
	req, err := query.BuildRequest(q)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	ticket, err := s.coord.BeginQuery()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	qctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	res, fetchErr := s.queries.Fetch(qctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.coord.Current() == ticket {
		s.cancel = nil
	}
	payload := queryPayload{Model: req.Model, TopK: req.TopK, Subjects: countSubjects(req)}

	if fetchErr != nil {
		if err := s.coord.FailQuery(ticket, fetchErr); err != nil {
			return nil, err
		}
		payload.Error = fetchErr.Error()
		s.events.Emit(kafka.EventQueryFailed, s.ID, payload)
		return nil, fetchErr
	}
	if err := s.coord.CompleteQuery(ticket, res.Dataset); err != nil {
		return nil, err
	}

	s.last = &QueryInfo{Request: req, Cached: res.Cached, Duration: res.Duration, CompletedAt: time.Now()}
	payload.Predictions = len(res.Dataset.Predictions)
	payload.Cached = res.Cached
	payload.DurationMS = res.Duration.Milliseconds()
	s.events.Emit(kafka.EventQueryCompleted, s.ID, payload)
	return s.last, nil
}

// Cancel abandons the running query, if any.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return s.coord.CancelQuery()
}

// LastQuery returns what loaded the current dataset, or nil.
func (s *Session) LastQuery() *QueryInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// View runs fn with the coordinator locked. fn must not keep the pointer.
func (s *Session) View(fn func(c *views.Coordinator) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.coord)
}

// Update runs fn like View and, when it succeeds, emits a filter change
// event describing what changed.
func (s *Session) Update(change string, detail interface{}, fn func(c *views.Coordinator) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(s.coord); err != nil {
		return err
	}
	s.events.Emit(kafka.EventFilterChanged, s.ID, map[string]interface{}{
		"change":  change,
		"detail":  detail,
		"version": s.coord.State().Version,
	})
	return nil
}

// Drag moves a subject anchor. Only the final frame of a drag is reported
// as an event.
func (s *Session) Drag(id string, dx, dy float64, final bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.coord.DragSubject(id, dx, dy, final); err != nil {
		return err
	}
	if final {
		s.events.Emit(kafka.EventSubjectDragged, s.ID, map[string]interface{}{
			"subject": id, "dx": dx, "dy": dy,
		})
	}
	return nil
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.coord.CancelQuery()
	s.coord.Close()
	s.logger.Debug("session closed", logging.Session(s.ID))
}

var errNotFound = errors.New(errors.ErrCodeSessionNotFound, "session not found")
