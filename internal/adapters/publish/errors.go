package publish

import "errors"

var (
	// ErrUnsupported is returned for publisher types or queue providers
	// that have no implementation.
	ErrUnsupported = errors.New("unsupported publisher")
	// ErrDelivery wraps every failed send.
	ErrDelivery = errors.New("delivery failed")
)
