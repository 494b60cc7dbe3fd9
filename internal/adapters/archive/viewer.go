package archive

import (
	"context"
	"errors"

	"github.com/okian/compliance-radar/pkg/logger"
)

// Viewer reads the database at path through a fresh read-only handle per
// call, so a concurrent run can still take the write lock between reads.
type Viewer struct {
	path string
	log  logger.Logger
}

// NewViewer creates a Viewer for path.
func NewViewer(path string, log logger.Logger) *Viewer {
	if log == nil {
		log = logger.Nop()
	}
	return &Viewer{path: path, log: log}
}

// Latest returns the most recently generated run.
func (v *Viewer) Latest(ctx context.Context) (Run, error) {
	return view(v, func(a *Archive) (Run, error) { return a.Latest(ctx) })
}

// Get returns the run stored under key.
func (v *Viewer) Get(ctx context.Context, key string) (Run, error) {
	return view(v, func(a *Archive) (Run, error) { return a.Get(ctx, key) })
}

// Keys lists stored run keys, oldest first. A missing file has no keys.
func (v *Viewer) Keys(ctx context.Context) ([]string, error) {
	keys, err := view(v, func(a *Archive) ([]string, error) { return a.Keys(ctx) })
	if errors.Is(err, ErrEmpty) {
		return []string{}, nil
	}
	return keys, err
}

func view[T any](v *Viewer, fn func(*Archive) (T, error)) (T, error) {
	var zero T
	a, err := OpenReadOnly(v.path, v.log)
	if err != nil {
		return zero, err
	}
	defer func() { _ = a.Close() }()
	return fn(a)
}
