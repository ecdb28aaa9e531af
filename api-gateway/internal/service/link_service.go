package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/fjod/cartlink/api-gateway/internal/cache"
	"github.com/fjod/cartlink/api-gateway/internal/domain"
	"github.com/fjod/cartlink/api-gateway/internal/repository"
	"github.com/fjod/cartlink/pkg/commercetools"
	"github.com/fjod/cartlink/pkg/events"
	"github.com/fjod/cartlink/pkg/logger"
)

type CommerceClient interface {
	CreateCart(ctx context.Context, draft commercetools.CartDraft) (*commercetools.Cart, error)
	UpdateCart(ctx context.Context, cartID string, version int64, actions ...any) (*commercetools.Cart, error)
	FindCartByLinkID(ctx context.Context, linkID string) (*commercetools.Cart, error)
	GetCustomer(ctx context.Context, customerID string) (*commercetools.Customer, error)
	CreateCheckoutSession(ctx context.Context, cartID, applicationKey string) (*commercetools.CheckoutSession, error)
}

type QRRenderer interface {
	PNG(content string) ([]byte, error)
}

type QRStore interface {
	Put(ctx context.Context, linkID string, png []byte) (string, error)
}

// Ledger records the progress of every link so partial failures can be found and
// pending events republished.
type Ledger interface {
	CreateLink(ctx context.Context, linkID string) error
	SetQRStored(ctx context.Context, linkID, qrCodeURL string) error
	SetCartCreated(ctx context.Context, linkID, cartID string, version int64) error
	SetDiscountApplied(ctx context.Context, linkID string, version int64) error
	SetEventPending(ctx context.Context, linkID string, payload []byte) error
	MarkPublished(ctx context.Context, linkID string) error
	MarkFailed(ctx context.Context, linkID, cause string) error
	RecordPublishError(ctx context.Context, linkID, cause string) error
	GetLink(ctx context.Context, linkID string) (*repository.LinkRecord, error)
	ListFailed(ctx context.Context, limit int) ([]*repository.LinkRecord, error)
}

type Config struct {
	BaseURL        string
	ApplicationKey string
}

type Deps struct {
	Commerce  CommerceClient
	Builder   *domain.DraftBuilder
	QR        QRRenderer
	Store     QRStore
	Publisher events.Publisher
	Ledger    Ledger
	Links     cache.LinkCache
	Customers *cache.CustomerCache
}

type LinkService struct {
	cfg       Config
	commerce  CommerceClient
	builder   *domain.DraftBuilder
	qr        QRRenderer
	store     QRStore
	publisher events.Publisher
	ledger    Ledger
	links     cache.LinkCache
	customers *cache.CustomerCache
	sfg       singleflight.Group

	newID func() string
	now   func() time.Time
}

// NewLinkService wires the service. Ledger, Links and Customers are optional.
func NewLinkService(cfg Config, d Deps) *LinkService {
	return &LinkService{
		cfg:       cfg,
		commerce:  d.Commerce,
		builder:   d.Builder,
		qr:        d.QR,
		store:     d.Store,
		publisher: d.Publisher,
		ledger:    d.Ledger,
		links:     d.Links,
		customers: d.Customers,
		newID:     domain.NewLinkID,
		now:       time.Now,
	}
}

type LinkResult struct {
	LinkID    string `json:"linkId"`
	Link      string `json:"link"`
	CartID    string `json:"cartId"`
	QRCodeURL string `json:"qrCodeUrl"`
}

// CreateLink renders and stores the QR code, creates the cart, applies the
// direct discount and publishes the analytics event. Nothing is rolled back
// on failure; the returned *LinkError names what already exists.
func (s *LinkService) CreateLink(ctx context.Context, req domain.LinkRequest) (*LinkResult, error) {
	if err := req.Validate(); err != nil {
		return nil, &LinkError{Category: CategoryValidation, Err: err}
	}
	region, err := s.builder.Region(req.Currency)
	if err != nil {
		return nil, &LinkError{Category: CategoryValidation, Err: err}
	}

	linkID := s.newID()
	createdAt := s.now().UTC()
	log := logger.FromContext(ctx).With().Str("link_id", linkID).Logger()

	if s.ledger != nil {
		if err := s.ledger.CreateLink(ctx, linkID); err != nil {
			return nil, &LinkError{Category: CategoryUpstream, LinkID: linkID, Err: fmt.Errorf("record link: %w", err)}
		}
	}

	customer, err := s.resolveCustomer(ctx, req.CustomerID)
	if err != nil {
		return nil, s.fail(ctx, log, linkID, "", err)
	}

	checkoutURL := domain.CheckoutURL(s.cfg.BaseURL, linkID)
	png, err := s.qr.PNG(checkoutURL)
	if err != nil {
		return nil, s.fail(ctx, log, linkID, "", err)
	}
	qrURL, err := s.store.Put(ctx, linkID, png)
	if err != nil {
		return nil, s.fail(ctx, log, linkID, "", fmt.Errorf("store qr code: %w", err))
	}
	s.record(log, "qr_stored", func() error { return s.ledger.SetQRStored(ctx, linkID, qrURL) })

	draft, err := s.builder.Build(req, customer, domain.LinkMeta{LinkID: linkID, CreatedAt: createdAt, QRCodeURL: qrURL})
	if err != nil {
		return nil, s.fail(ctx, log, linkID, "", err)
	}

	cart, err := s.commerce.CreateCart(ctx, draft)
	if err != nil {
		return nil, s.fail(ctx, log, linkID, "", fmt.Errorf("create cart: %w", err))
	}
	log = log.With().Str("cart_id", cart.ID).Logger()
	s.record(log, "cart_created", func() error { return s.ledger.SetCartCreated(ctx, linkID, cart.ID, cart.Version) })

	if req.DirectDiscount != nil {
		dd, err := req.DirectDiscount.Draft(req.Currency)
		if err != nil {
			return nil, s.fail(ctx, log, linkID, cart.ID, err)
		}
		updated, err := s.commerce.UpdateCart(ctx, cart.ID, cart.Version, commercetools.NewSetDirectDiscounts(dd))
		if err != nil {
			return nil, s.fail(ctx, log, linkID, cart.ID, fmt.Errorf("apply direct discount: %w", err))
		}
		cart = updated
		s.record(log, "discount_applied", func() error { return s.ledger.SetDiscountApplied(ctx, linkID, cart.Version) })
	}

	event := buildEvent(linkID, createdAt, cart, req, region)
	payload, err := events.Encode(event)
	if err != nil {
		return nil, s.fail(ctx, log, linkID, cart.ID, err)
	}
	s.record(log, "event_pending", func() error { return s.ledger.SetEventPending(ctx, linkID, payload) })

	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Error().Err(err).Msg("publish link created event failed, left pending for recovery")
		s.record(log, "publish_error", func() error { return s.ledger.RecordPublishError(ctx, linkID, err.Error()) })
		return nil, &LinkError{Category: CategoryUpstream, LinkID: linkID, CartID: cart.ID, Err: fmt.Errorf("publish event: %w", err)}
	}
	s.record(log, "published", func() error { return s.ledger.MarkPublished(ctx, linkID) })

	log.Info().Str("qr_code_url", qrURL).Msg("link created")
	return &LinkResult{
		LinkID:    linkID,
		Link:      checkoutURL,
		CartID:    cart.ID,
		QRCodeURL: qrURL,
	}, nil
}

func (s *LinkService) fail(ctx context.Context, log zerolog.Logger, linkID, cartID string, err error) error {
	category := classify(err)
	log.Error().Err(err).Str("category", string(category)).Msg("link creation failed")
	s.record(log, "failed", func() error { return s.ledger.MarkFailed(ctx, linkID, err.Error()) })
	return &LinkError{Category: category, LinkID: linkID, CartID: cartID, Err: err}
}

// record runs a ledger step. Ledger failures are logged, never returned: the
// remote side effects have already happened.
func (s *LinkService) record(log zerolog.Logger, step string, fn func() error) {
	if s.ledger == nil {
		return
	}
	if err := fn(); err != nil {
		log.Warn().Err(err).Str("step", step).Msg("ledger update failed")
	}
}

func buildEvent(linkID string, createdAt time.Time, cart *commercetools.Cart, req domain.LinkRequest, region domain.Region) events.LinkCreated {
	e := events.LinkCreated{
		LinkID:        linkID,
		CartID:        cart.ID,
		CreatedAt:     domain.FormatTimestamp(createdAt),
		CustomerID:    firstNonEmpty(cart.CustomerID, req.CustomerID),
		CustomerEmail: firstNonEmpty(cart.CustomerEmail, req.CustomerEmail),
		Currency:      firstNonEmpty(cart.TotalPrice.CurrencyCode, strings.ToUpper(req.Currency)),
		Country:       firstNonEmpty(cart.Country, region.Country),
		TotalAmount:   cart.TotalPrice.CentAmount,
		Products:      make([]events.Product, 0, len(cart.LineItems)),
		DiscountCode:  strings.TrimSpace(req.DiscountCode),
	}
	for _, li := range cart.LineItems {
		e.Products = append(e.Products, events.Product{
			ProductID:  li.ProductID,
			Quantity:   li.Quantity,
			CentAmount: li.Price.Value.CentAmount,
		})
	}
	if req.DirectDiscount != nil {
		e.DirectDiscount = req.DirectDiscount.Event()
	}
	return e
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// lookupTimeout bounds a shared link lookup, which outlives the caller that started it.
const lookupTimeout = 10 * time.Second

// GetLink returns the cart carrying linkID. Concurrent lookups of the same id
// share one remote call; each caller stops waiting when its own context ends.
func (s *LinkService) GetLink(ctx context.Context, linkID string) (*commercetools.Cart, error) {
	if err := domain.ValidateLinkID(linkID); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)

	ch := s.sfg.DoChan("link:"+linkID, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()

		if s.links != nil {
			cart, err := s.links.Get(ctx, linkID)
			if err == nil {
				return cart, nil
			}
			if !errors.Is(err, cache.ErrCacheMiss) {
				log.Warn().Err(err).Str("link_id", linkID).Msg("link cache get failed")
			}
		}

		cart, err := s.commerce.FindCartByLinkID(ctx, linkID)
		if errors.Is(err, commercetools.ErrCartNotFound) {
			return nil, ErrLinkNotFound
		}
		if err != nil {
			return nil, err
		}

		if s.links != nil {
			go func() {
				setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := s.links.Set(setCtx, linkID, cart); err != nil {
					log.Warn().Err(err).Str("link_id", linkID).Msg("link cache set failed")
				}
			}()
		}
		return cart, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*commercetools.Cart), nil
	}
}

func (s *LinkService) invalidateLink(ctx context.Context, linkID string) {
	if s.links == nil || linkID == "" {
		return
	}
	if err := s.links.Delete(ctx, linkID); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("link_id", linkID).Msg("link cache delete failed")
	}
}

func (s *LinkService) GetLinkStatus(ctx context.Context, linkID string) (*repository.LinkRecord, error) {
	if err := domain.ValidateLinkID(linkID); err != nil {
		return nil, err
	}
	if s.ledger == nil {
		return nil, ErrLedgerDisabled
	}
	rec, err := s.ledger.GetLink(ctx, linkID)
	if errors.Is(err, repository.ErrLinkNotFound) {
		return nil, ErrLinkNotFound
	}
	return rec, err
}

func (s *LinkService) ListFailedLinks(ctx context.Context, limit int) ([]*repository.LinkRecord, error) {
	if s.ledger == nil {
		return nil, ErrLedgerDisabled
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.ledger.ListFailed(ctx, limit)
}
