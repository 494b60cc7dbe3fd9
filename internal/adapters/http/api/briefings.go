package api

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okian/compliance-radar/internal/adapters/archive"
	"github.com/okian/compliance-radar/pkg/logger"
)

// BriefingsHandler serves archived payloads.
type BriefingsHandler struct {
	store Store
	log   logger.Logger
}

// NewBriefingsHandler creates a new briefings handler.
func NewBriefingsHandler(store Store, log logger.Logger) *BriefingsHandler {
	return &BriefingsHandler{store: store, log: log}
}

// RunRef identifies one archived run.
type RunRef struct {
	Key         string `json:"key"`
	GeneratedAt string `json:"generated_at"`
	RunID       string `json:"run_id"`
}

type listResponse struct {
	Runs []RunRef `json:"runs"`
}

// HandleList handles GET /api/briefings, newest first.
func (h *BriefingsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	keys, err := h.store.Keys(r.Context())
	if err != nil {
		h.log.Warn(r.Context(), "list runs failed", logger.Error(err))
		writeStoreError(w, err)
		return
	}
	slices.Reverse(keys)

	runs := make([]RunRef, 0, len(keys))
	for _, k := range keys {
		runs = append(runs, refFromKey(k))
	}
	writeJSON(w, http.StatusOK, listResponse{Runs: runs})
}

// HandleLatest handles GET /api/briefings/latest.
func (h *BriefingsHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	run, err := h.store.Latest(r.Context())
	if err != nil {
		h.log.Warn(r.Context(), "read latest run failed", logger.Error(err))
		writeStoreError(w, err)
		return
	}
	writePayload(w, run)
}

// HandleGet handles GET /api/briefings/{key}.
func (h *BriefingsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(chi.URLParam(r, "key"))
	if key == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing run key", ErrBadRequest))
		return
	}
	run, err := h.store.Get(r.Context(), key)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writePayload(w, run)
}

// writePayload sends the stored bytes untouched.
func writePayload(w http.ResponseWriter, run archive.Run) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Run-Key", run.Key)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(run.Payload)
}

// refFromKey splits a storage key into its timestamp and run id.
func refFromKey(key string) RunRef {
	ts, id, _ := strings.Cut(key, "_")
	return RunRef{Key: key, GeneratedAt: ts, RunID: id}
}
