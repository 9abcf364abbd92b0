package config

import (
	"errors"
)

// Sentinel errors wrapped by Load. ErrLoadConfig covers file and env
// sourcing failures; ErrInvalidConfig covers values that fail validation.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
