// Package site serves the embedded briefing dashboard.
package site

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Register mounts the dashboard at the root of r. API routes registered on
// r take precedence.
func Register(_ context.Context, r chi.Router) {
	if r == nil {
		panic("router is nil")
	}
	r.Handle("/*", http.FileServer(FS()))
}
