package api

import "github.com/okian/compliance-radar/pkg/logger"

type options struct {
	log logger.Logger
}

// Option configures a Server.
type Option func(*options)

// WithLogger sets the logger used for store failures.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}
