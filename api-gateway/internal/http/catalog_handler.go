package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/cartlink/api-gateway/internal/domain"
	"github.com/fjod/cartlink/pkg/commercetools"
)

type CustomerService interface {
	GetCustomer(ctx context.Context, customerID string) (*commercetools.Customer, error)
}

type RegionLookup interface {
	Currencies() []string
	Resolve(currency string) (domain.Region, error)
}

// CatalogHandler serves the lookups the link form needs.
type CatalogHandler struct {
	customers CustomerService
	regions   RegionLookup
	timeout   time.Duration
}

func NewCatalogHandler(customers CustomerService, regions RegionLookup, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{
		customers: customers,
		regions:   regions,
		timeout:   timeout,
	}
}

type CustomerDTO struct {
	ID                     string                 `json:"id"`
	Email                  string                 `json:"email"`
	FirstName              string                 `json:"firstName,omitempty"`
	LastName               string                 `json:"lastName,omitempty"`
	DefaultShippingAddress *commercetools.Address `json:"defaultShippingAddress,omitempty"`
}

type CurrencyDTO struct {
	Currency string `json:"currency"`
	Country  string `json:"country"`
}

// GET /api/customers/{customerId}
func (h *CatalogHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, err := h.customers.GetCustomer(ctx, chi.URLParam(r, "customerId"))
	if err != nil {
		handleError(ctx, w, err, "Failed to retrieve customer")
		return
	}

	respondJSON(ctx, w, http.StatusOK, CustomerDTO{
		ID:                     c.ID,
		Email:                  c.Email,
		FirstName:              c.FirstName,
		LastName:               c.LastName,
		DefaultShippingAddress: c.DefaultShippingAddress(),
	})
}

// GET /api/currencies
func (h *CatalogHandler) Currencies(w http.ResponseWriter, r *http.Request) {
	codes := h.regions.Currencies()
	out := make([]CurrencyDTO, 0, len(codes))
	for _, code := range codes {
		region, err := h.regions.Resolve(code)
		if err != nil {
			continue
		}
		out = append(out, CurrencyDTO{Currency: code, Country: region.Country})
	}
	respondJSON(r.Context(), w, http.StatusOK, map[string][]CurrencyDTO{"currencies": out})
}
