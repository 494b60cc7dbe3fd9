package worker

import (
	"time"

	"github.com/okian/compliance-radar/pkg/logger"
)

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithSize sets the number of concurrent fetches. Values below one are ignored.
func WithSize(n int) Option {
	return func(p *Pool) {
		if n >= 1 {
			p.size = n
		}
	}
}

// WithTimeout sets the per-source fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithMaxItems caps the entries taken from each source. Zero means unlimited.
func WithMaxItems(n int) Option {
	return func(p *Pool) {
		if n >= 0 {
			p.maxItems = n
		}
	}
}

// WithLogger sets a custom logger for the pool.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.log = l
		}
	}
}
