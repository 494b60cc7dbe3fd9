package archive

import "errors"

var (
	// ErrClosed is returned when the archive is used after Close.
	ErrClosed = errors.New("archive closed")

	// ErrEmpty is returned by Latest when no run has been stored.
	ErrEmpty = errors.New("archive is empty")

	// ErrNotFound is returned by Get for an unknown key.
	ErrNotFound = errors.New("run not found")
)
