package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/cartlink/api-gateway/internal/domain"
	"github.com/fjod/cartlink/api-gateway/internal/repository"
	"github.com/fjod/cartlink/api-gateway/internal/service"
	"github.com/fjod/cartlink/pkg/commercetools"
)

type LinkService interface {
	CreateLink(ctx context.Context, req domain.LinkRequest) (*service.LinkResult, error)
	GetLink(ctx context.Context, linkID string) (*commercetools.Cart, error)
	GetLinkStatus(ctx context.Context, linkID string) (*repository.LinkRecord, error)
	ListFailedLinks(ctx context.Context, limit int) ([]*repository.LinkRecord, error)
}

type LinkHandler struct {
	links   LinkService
	timeout time.Duration
}

func NewLinkHandler(links LinkService, timeout time.Duration) *LinkHandler {
	return &LinkHandler{
		links:   links,
		timeout: timeout,
	}
}

type GetLinkResponseDTO struct {
	Cart *commercetools.Cart `json:"cart"`
}

type LinkStatusDTO struct {
	LinkID    string    `json:"linkId"`
	Status    string    `json:"status"`
	CartID    string    `json:"cartId,omitempty"`
	QRCodeURL string    `json:"qrCodeUrl,omitempty"`
	LastError string    `json:"lastError,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toStatusDTO(r *repository.LinkRecord) LinkStatusDTO {
	return LinkStatusDTO{
		LinkID:    r.LinkID,
		Status:    string(r.Status),
		CartID:    r.CartID,
		QRCodeURL: r.QRCodeURL,
		LastError: r.LastError,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// POST /api/links
func (h *LinkHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req domain.LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "Invalid link request", "invalid JSON body")
		return
	}

	res, err := h.links.CreateLink(ctx, req)
	if err != nil {
		handleError(ctx, w, err, "Failed to create link")
		return
	}

	respondJSON(ctx, w, http.StatusOK, res)
}

// GET /api/links/{linkId}
func (h *LinkHandler) GetLink(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	linkID := chi.URLParam(r, "linkId")
	if linkID == "" {
		respondError(ctx, w, http.StatusBadRequest, "Link ID is required", "")
		return
	}

	cart, err := h.links.GetLink(ctx, linkID)
	if err != nil {
		handleError(ctx, w, err, "Failed to retrieve cart")
		return
	}

	respondJSON(ctx, w, http.StatusOK, GetLinkResponseDTO{Cart: cart})
}

// GET /api/links/{linkId}/status
func (h *LinkHandler) GetLinkStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	rec, err := h.links.GetLinkStatus(ctx, chi.URLParam(r, "linkId"))
	if err != nil {
		handleError(ctx, w, err, "Failed to retrieve link status")
		return
	}

	respondJSON(ctx, w, http.StatusOK, toStatusDTO(rec))
}

// GET /api/links/failed?limit=N
func (h *LinkHandler) ListFailed(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(ctx, w, http.StatusBadRequest, "Invalid request", "limit must be a positive integer")
			return
		}
		limit = n
	}

	recs, err := h.links.ListFailedLinks(ctx, limit)
	if err != nil {
		handleError(ctx, w, err, "Failed to list failed links")
		return
	}

	out := make([]LinkStatusDTO, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toStatusDTO(rec))
	}
	respondJSON(ctx, w, http.StatusOK, map[string][]LinkStatusDTO{"links": out})
}
