package config

import (
	"errors"
)

// Sentinel errors. ErrLoadConfig covers unreadable or missing files,
// ErrInvalidConfig covers content that was read but failed validation.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
