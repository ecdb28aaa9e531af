package service

import (
	"context"
	"errors"
	"strings"

	"github.com/fjod/cartlink/api-gateway/internal/domain"
	"github.com/fjod/cartlink/pkg/commercetools"
)

// CreateCheckoutSession opens a hosted checkout session for cartID. The cached
// lookup of linkID, when given, is dropped since checkout will change the cart.
func (s *LinkService) CreateCheckoutSession(ctx context.Context, cartID, linkID string) (*commercetools.CheckoutSession, error) {
	if strings.TrimSpace(cartID) == "" {
		return nil, &domain.ValidationError{Field: "cartId", Err: errors.New("cartId is required")}
	}
	session, err := s.commerce.CreateCheckoutSession(ctx, cartID, s.cfg.ApplicationKey)
	if err != nil {
		return nil, err
	}
	s.invalidateLink(ctx, linkID)
	return session, nil
}
