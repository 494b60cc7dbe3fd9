package api

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/compliance-radar/internal/adapters/archive"
	"github.com/okian/compliance-radar/pkg/metrics"
)

// HealthHandler reports liveness and exposes metrics.
type HealthHandler struct {
	store Store
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(store Store) *HealthHandler {
	return &HealthHandler{store: store}
}

type healthResponse struct {
	Status    string `json:"status"`
	LatestRun string `json:"latest_run,omitempty"`
}

// HandleHealth handles GET /healthz. An empty archive is healthy; an
// unreadable one is not.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	run, err := h.store.Latest(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", LatestRun: run.Key})
	case errors.Is(err, archive.ErrEmpty):
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	default:
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
	}
}

// HandleMetrics handles GET /metrics from the custom registry.
func (h *HealthHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}
