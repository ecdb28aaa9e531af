package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/cartlink/pkg/commercetools"
)

type CheckoutService interface {
	CreateCheckoutSession(ctx context.Context, cartID, linkID string) (*commercetools.CheckoutSession, error)
}

type CheckoutHandler struct {
	checkout CheckoutService
	timeout  time.Duration
}

func NewCheckoutHandler(checkout CheckoutService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		timeout:  timeout,
	}
}

type CreateSessionRequestDTO struct {
	CartID string `json:"cartId"`
	LinkID string `json:"linkId,omitempty"`
}

// POST /api/checkout/session
// The session is returned as the commerce platform sent it.
func (h *CheckoutHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CreateSessionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "Invalid request", "invalid JSON body")
		return
	}

	session, err := h.checkout.CreateCheckoutSession(ctx, req.CartID, req.LinkID)
	if err != nil {
		handleError(ctx, w, err, "Failed to create checkout session")
		return
	}

	if len(session.Raw) > 0 {
		respondRaw(ctx, w, http.StatusOK, session.Raw)
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]string{"id": session.ID})
}
