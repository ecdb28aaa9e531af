package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/cartlink/api-gateway/internal/metrics"
)

type MetricsSource interface {
	Dashboard(ctx context.Context) (*metrics.Dashboard, error)
}

type DashboardHandler struct {
	metrics MetricsSource
	timeout time.Duration
}

func NewDashboardHandler(m MetricsSource, timeout time.Duration) *DashboardHandler {
	return &DashboardHandler{
		metrics: m,
		timeout: timeout,
	}
}

// GET /api/dashboard/metrics
func (h *DashboardHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	d, err := h.metrics.Dashboard(ctx)
	if err != nil {
		handleError(ctx, w, err, "Failed to fetch dashboard metrics")
		return
	}

	respondJSON(ctx, w, http.StatusOK, d)
}
