package kafka

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/monitoring/logging"
)

// MessagePublisher is satisfied by *Producer.
type MessagePublisher interface {
	Publish(ctx context.Context, msg *ProducerMessage) error
	Close() error
}

// Emitter records session events without blocking the caller.
type Emitter interface {
	Emit(t EventType, sessionID string, payload interface{})
}

// NopEmitter drops every event. Used when Kafka is disabled.
type NopEmitter struct{}

func (NopEmitter) Emit(EventType, string, interface{}) {}

// AsyncPublisher queues events on a bounded buffer and publishes them from
// a single worker. When the buffer is full the event is dropped.
type AsyncPublisher struct {
	pub     MessagePublisher
	topic   string
	logger  logging.Logger
	timeout time.Duration

	queue   chan *Event
	done    chan struct{}
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// NewAsyncPublisher starts the worker. Close must be called to stop it.
func NewAsyncPublisher(pub MessagePublisher, topic string, bufferSize int, logger logging.Logger) *AsyncPublisher {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	p := &AsyncPublisher{
		pub:     pub,
		topic:   topic,
		logger:  logger,
		timeout: 5 * time.Second,
		queue:   make(chan *Event, bufferSize),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *AsyncPublisher) Emit(t EventType, sessionID string, payload interface{}) {
	evt, err := NewEvent(t, sessionID, payload)
	if err != nil {
		p.logger.Warn("dropping unencodable event", logging.String("type", string(t)), logging.Err(err))
		return
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- evt:
	default:
		p.dropped.Add(1)
		p.logger.Warn("event buffer full, dropping event",
			logging.String("type", string(t)), logging.Session(sessionID))
	}
}

// Dropped reports how many events were discarded because the buffer was full.
func (p *AsyncPublisher) Dropped() int64 { return p.dropped.Load() }

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for evt := range p.queue {
		msg, err := evt.ToMessage(p.topic)
		if err != nil {
			p.logger.Warn("dropping unencodable event", logging.Err(err))
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if err := p.pub.Publish(ctx, msg); err != nil {
			p.logger.Error("event publish failed",
				logging.String("type", string(evt.Type)), logging.Err(err))
		}
		cancel()
	}
}

// Close stops accepting events, drains the buffer and closes the
// underlying publisher.
func (p *AsyncPublisher) Close() error {
	var err error
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
		<-p.done
		err = p.pub.Close()
	})
	return err
}
