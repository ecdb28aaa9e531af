package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type RouterConfig struct {
	Logger             zerolog.Logger
	CORSOrigins        []string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

type Handlers struct {
	Links     *LinkHandler
	Checkout  *CheckoutHandler
	Dashboard *DashboardHandler
	Catalog   *CatalogHandler
}

func NewRouter(cfg RouterConfig, h Handlers) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(CORS(cfg.CORSOrigins))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(MaxBodySize(cfg.MaxRequestBodySize))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/links", func(r chi.Router) {
			r.Post("/", h.Links.CreateLink)
			r.Get("/failed", h.Links.ListFailed)
			r.Get("/{linkId}", h.Links.GetLink)
			r.Get("/{linkId}/status", h.Links.GetLinkStatus)
		})
		r.Post("/checkout/session", h.Checkout.CreateSession)
		r.Get("/dashboard/metrics", h.Dashboard.Metrics)
		r.Get("/customers/{customerId}", h.Catalog.GetCustomer)
		r.Get("/currencies", h.Catalog.Currencies)
	})

	return r
}
