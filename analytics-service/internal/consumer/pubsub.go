package consumer

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
)

// PubSubSource pulls from a subscription and acks a message once the handler
// accepts it. Handler failures nack the message so Pub/Sub redelivers it.
type PubSubSource struct {
	sub     *pubsub.Subscription
	handler Handler
	log     zerolog.Logger
}

func NewPubSubSource(client *pubsub.Client, subscriptionID string, handler Handler, log zerolog.Logger) *PubSubSource {
	return &PubSubSource{
		sub:     client.Subscription(subscriptionID),
		handler: handler,
		log:     log.With().Str("subscription", subscriptionID).Logger(),
	}
}

// Run blocks until ctx is cancelled or the subscription fails.
func (s *PubSubSource) Run(ctx context.Context) error {
	err := s.sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		log := s.log.With().Str("message_id", m.ID).Logger()
		err := s.handler.Handle(log.WithContext(ctx), m.Data)
		switch {
		case err == nil:
			m.Ack()
		case errors.Is(err, ErrMalformed):
			log.Error().Err(err).Msg("dropping malformed message")
			m.Ack()
		default:
			log.Error().Err(err).Msg("handler failed, message will be redelivered")
			m.Nack()
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("receive %s: %w", s.sub.ID(), err)
	}
	return nil
}
