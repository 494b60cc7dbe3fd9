// Package api serves archived briefings over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/compliance-radar/internal/adapters/archive"
	"github.com/okian/compliance-radar/pkg/logger"
)

// Store is the read side of the run archive.
type Store interface {
	Latest(ctx context.Context) (archive.Run, error)
	Get(ctx context.Context, key string) (archive.Run, error)
	Keys(ctx context.Context) ([]string, error)
}

// Server wires HTTP routes for the briefing API.
type Server struct {
	healthHandler    *HealthHandler
	briefingsHandler *BriefingsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(store Store, opts ...Option) *Server {
	o := options{log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		healthHandler:    NewHealthHandler(store),
		briefingsHandler: NewBriefingsHandler(store, o.log),
	}
}

// Register attaches all API routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	if r == nil {
		panic("router is nil")
	}
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/metrics", MetricsMiddleware(s.healthHandler.HandleMetrics, "metrics"))
	r.Route("/api/briefings", func(r chi.Router) {
		r.Get("/", MetricsMiddleware(s.briefingsHandler.HandleList, "briefings_list"))
		r.Get("/latest", MetricsMiddleware(s.briefingsHandler.HandleLatest, "briefings_latest"))
		r.Get("/{key}", MetricsMiddleware(s.briefingsHandler.HandleGet, "briefings_get"))
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeStoreError maps archive errors onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, archive.ErrEmpty):
		writeError(w, http.StatusNotFound, "empty", err)
	case errors.Is(err, archive.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	default:
		writeError(w, http.StatusServiceUnavailable, "unavailable", ErrUnavailable)
	}
}
