package common

import (
	"errors"
)

// Common error constants
var (
	// ErrInvalidConfig is returned when an invalid configuration is provided
	ErrInvalidConfig = errors.New("invalid configuration")
)
