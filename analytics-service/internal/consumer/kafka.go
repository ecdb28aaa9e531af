package consumer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const (
	TopicOrderCreated = "order-created-events"
	kafkaGroupID      = "analytics-service"
)

// KafkaConsumer feeds one topic into a Handler. Offsets are committed after the
// handler finishes, so a crash redelivers the message. A failed message is left
// uncommitted and the reader rejoins the group, which fetches it again from the
// last committed offset.
type KafkaConsumer struct {
	cfg     kafka.ReaderConfig
	mu      sync.Mutex
	reader  *kafka.Reader
	handler Handler
	backoff time.Duration
	log     zerolog.Logger
}

func NewKafkaConsumer(topic string, handler Handler, log zerolog.Logger, brokers ...string) *KafkaConsumer {
	cfg := kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  kafkaGroupID,
		MaxBytes: 10e6, // 10MB
	}
	return &KafkaConsumer{
		cfg:     cfg,
		reader:  kafka.NewReader(cfg),
		handler: handler,
		backoff: time.Second,
		log:     log.With().Str("topic", topic).Logger(),
	}
}

func (c *KafkaConsumer) Run(ctx context.Context) {
	for ctx.Err() == nil {
		if err := c.processMessage(ctx); err != nil {
			c.rewind(ctx)
		}
	}
}

func (c *KafkaConsumer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.reader.Close(); err != nil {
		c.log.Error().Err(err).Msg("error closing kafka reader")
	}
}

func (c *KafkaConsumer) current() *kafka.Reader {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reader
}

// processMessage returns the handler error when the message was left uncommitted.
func (c *KafkaConsumer) processMessage(ctx context.Context) error {
	reader := c.current()
	m, err := reader.FetchMessage(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.log.Error().Err(err).Msg("error reading message")
		}
		return nil
	}
	log := c.log.With().Int("partition", m.Partition).Int64("offset", m.Offset).Logger()

	err = c.handler.Handle(log.WithContext(ctx), m.Value)
	switch {
	case err == nil:
	case errors.Is(err, ErrMalformed):
		// no dead-letter topic: the message is logged and skipped
		log.Error().Err(err).Str("key", string(m.Key)).Msg("dropping malformed message")
	default:
		log.Error().Err(err).Str("key", string(m.Key)).Msg("handler failed, message will be redelivered")
		return err
	}

	if err := reader.CommitMessages(ctx, m); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("failed to commit offset")
	}
	return nil
}

// rewind replaces the reader so the group resumes from the last committed offset.
func (c *KafkaConsumer) rewind(ctx context.Context) {
	c.mu.Lock()
	if err := c.reader.Close(); err != nil {
		c.log.Error().Err(err).Msg("error closing kafka reader")
	}
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return
	case <-time.After(c.backoff):
	}

	c.mu.Lock()
	c.reader = kafka.NewReader(c.cfg)
	c.mu.Unlock()
}
