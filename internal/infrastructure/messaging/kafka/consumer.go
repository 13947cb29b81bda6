package kafka

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/monitoring/logging"
	"github.com/AdamCoscia/KnowledgeVIS/pkg/errors"
)

var ErrConsumerClosed = errors.New(errors.ErrCodeMessagingError, "consumer closed")

// Start offsets for a consumer without a group.
const (
	OffsetOldest = kafka.FirstOffset
	OffsetNewest = kafka.LastOffset
)

// ConsumerConfig holds configuration for the Consumer.
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	// GroupID enables committed offsets. Without it the consumer reads the
	// single partition 0 from StartOffset.
	GroupID     string
	StartOffset int64
	MaxWait     time.Duration
}

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Handler processes one decoded event.
type Handler func(ctx context.Context, evt *Event) error

// Consumer reads session events, mainly for the CLI tail command.
type Consumer struct {
	reader    ReaderInterface
	commit    bool
	logger    logging.Logger
	closed    atomic.Bool
	consumed  atomic.Int64
	malformed atomic.Int64
}

func NewConsumer(cfg ConsumerConfig, logger logging.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "brokers required")
	}
	if cfg.Topic == "" {
		return nil, errors.New(errors.ErrCodeValidation, "topic required")
	}
	if cfg.StartOffset == 0 {
		cfg.StartOffset = kafka.LastOffset
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = time.Second
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		StartOffset: cfg.StartOffset,
		MaxWait:     cfg.MaxWait,
	})
	return newConsumer(reader, cfg.GroupID != "", logger), nil
}

func newConsumer(r ReaderInterface, commit bool, logger logging.Logger) *Consumer {
	return &Consumer{reader: r, commit: commit, logger: logger}
}

// Run fetches until ctx is done or handler fails. Malformed messages are
// logged and skipped. Returns nil when ctx ends the loop.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	for {
		if c.closed.Load() {
			return ErrConsumerClosed
		}
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, errors.ErrCodeMessagingError, "fetch message")
		}
		c.consumed.Add(1)

		evt, err := DecodeEvent(msg)
		if err != nil {
			c.malformed.Add(1)
			c.logger.Warn("skipping malformed event",
				logging.Int64("offset", msg.Offset), logging.Err(err))
		} else if err := handler(ctx, evt); err != nil {
			return err
		}

		if c.commit {
			if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
				c.logger.Warn("commit failed", logging.Int64("offset", msg.Offset), logging.Err(err))
			}
		}
	}
}

// Consumed reports how many messages were fetched, malformed ones included.
func (c *Consumer) Consumed() int64 { return c.consumed.Load() }

// Malformed reports how many fetched messages could not be decoded.
func (c *Consumer) Malformed() int64 { return c.malformed.Load() }

func (c *Consumer) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.reader.Close()
}
