package sampling

import (
	"errors"

	"github.com/safing/entropool/qrng"
)

// Errors.
var (
	ErrInvalidRange      = errors.New("invalid range")
	ErrSourceUnavailable = qrng.ErrSourceUnavailable
)
