package feed

import (
	"github.com/go-resty/resty/v2"

	"github.com/okian/compliance-radar/pkg/logger"
)

// Option applies a configuration option to the Reader.
type Option func(*Reader)

// WithHTTPClient sets the resty client used for fetching.
func WithHTTPClient(c *resty.Client) Option {
	return func(r *Reader) {
		if c != nil {
			r.client = c
		}
	}
}

// WithUserAgent sets the User-Agent header sent to feed origins.
func WithUserAgent(ua string) Option {
	return func(r *Reader) {
		if ua != "" {
			r.userAgent = ua
		}
	}
}

// WithRetryCount sets how many times a failed request is retried.
func WithRetryCount(n int) Option {
	return func(r *Reader) {
		if n >= 0 {
			r.retries = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Reader) {
		if l != nil {
			r.log = l
		}
	}
}
