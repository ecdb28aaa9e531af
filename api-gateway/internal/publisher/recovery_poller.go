package publisher

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/fjod/cartlink/api-gateway/internal/repository"
	"github.com/fjod/cartlink/pkg/events"
)

// PendingRepository is the part of the link ledger the poller needs.
type PendingRepository interface {
	GetPendingEvents(ctx context.Context, olderThan time.Duration, limit int) ([]*repository.LinkRecord, error)
	MarkPublished(ctx context.Context, linkID string) error
	RecordPublishError(ctx context.Context, linkID, cause string) error
	ListFailed(ctx context.Context, limit int) ([]*repository.LinkRecord, error)
}

// RecoveryPoller republishes link events that were saved but never acknowledged
// by the event bus, and periodically reports links that failed half way.
type RecoveryPoller struct {
	eventTick  time.Duration
	reportTick time.Duration
	grace      time.Duration
	batch      int
	repo       PendingRepository
	publisher  events.Publisher
	log        zerolog.Logger
}

func NewRecoveryPoller(repo PendingRepository, pub events.Publisher, log zerolog.Logger) *RecoveryPoller {
	return &RecoveryPoller{
		eventTick:  time.Second * 10,
		reportTick: time.Minute * 5,
		grace:      time.Second * 30,
		batch:      100,
		repo:       repo,
		publisher:  pub,
		log:        log.With().Str("component", "recovery_poller").Logger(),
	}
}

func (p *RecoveryPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	reportTicker := time.NewTicker(p.reportTick)
	defer eventTicker.Stop()
	defer reportTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.republishPending(ctx)
		case <-reportTicker.C:
			p.reportFailed(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *RecoveryPoller) republishPending(ctx context.Context) {
	pending, err := p.repo.GetPendingEvents(ctx, p.grace, p.batch)
	if err != nil {
		p.log.Error().Err(err).Msg("failed to fetch pending events")
		return
	}

	for _, rec := range pending {
		log := p.log.With().Str("link_id", rec.LinkID).Str("cart_id", rec.CartID).Logger()

		event, err := events.Decode(rec.EventPayload)
		if err != nil {
			log.Error().Err(err).Msg("stored event payload is unreadable")
			if err := p.repo.RecordPublishError(ctx, rec.LinkID, err.Error()); err != nil {
				log.Warn().Err(err).Msg("failed to record publish error")
			}
			continue
		}

		if err := p.publisher.Publish(ctx, event); err != nil {
			log.Warn().Err(err).Msg("republish failed")
			if err := p.repo.RecordPublishError(ctx, rec.LinkID, err.Error()); err != nil {
				log.Warn().Err(err).Msg("failed to record publish error")
			}
			continue
		}

		if err := p.repo.MarkPublished(ctx, rec.LinkID); err != nil {
			log.Error().Err(err).Msg("failed to mark event as published")
			continue
		}
		log.Info().Msg("pending event republished")
	}
}

// reportFailed logs links that left a cart or QR object behind.
func (p *RecoveryPoller) reportFailed(ctx context.Context) {
	failed, err := p.repo.ListFailed(ctx, p.batch)
	if err != nil {
		p.log.Error().Err(err).Msg("failed to list failed links")
		return
	}
	for _, rec := range failed {
		if rec.CartID == "" && rec.QRCodeURL == "" {
			continue
		}
		p.log.Warn().
			Str("link_id", rec.LinkID).
			Str("cart_id", rec.CartID).
			Str("qr_code_url", rec.QRCodeURL).
			Str("last_error", rec.LastError).
			Time("updated_at", rec.UpdatedAt).
			Msg("orphaned link needs reconciliation")
	}
}
