package qrng

import (
	"errors"
)

// Errors.
var (
	// ErrSourceUnavailable is returned when the service is unreachable or
	// returned malformed or incomplete data.
	ErrSourceUnavailable = errors.New("entropy source unavailable")
	// ErrTimeout is returned when a request exceeded its time bound.
	ErrTimeout = errors.New("entropy source timed out")
)

// IsRetryable returns whether the error is transient and the request may be
// tried again.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable) || errors.Is(err, ErrTimeout)
}
