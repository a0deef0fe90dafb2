package entropy

import (
	"errors"
	"fmt"

	"github.com/safing/entropool/qrng"
)

// Errors.
var (
	ErrSourceUnavailable = qrng.ErrSourceUnavailable
	ErrTimeout           = qrng.ErrTimeout
	ErrSizeOutOfRange    = errors.New("entropy size out of range")
	ErrNotFound          = errors.New("entropy record not found")
	ErrIntegrity         = errors.New("entropy record failed integrity check")
	ErrPoolEmpty         = errors.New("entropy pool is empty")
)

// SizeError is returned when an entropy size violates a size bound.
type SizeError struct {
	Size  int
	Bound int
	// Minimum is set when the lower bound was violated.
	Minimum bool
}

func (se *SizeError) Error() string {
	if se.Minimum {
		return fmt.Sprintf("%s: size %d is below the minimum of %d", ErrSizeOutOfRange, se.Size, se.Bound)
	}
	return fmt.Sprintf("%s: size %d is above the maximum of %d", ErrSizeOutOfRange, se.Size, se.Bound)
}

// Is allows to match against ErrSizeOutOfRange.
func (se *SizeError) Is(target error) bool {
	return target == ErrSizeOutOfRange
}
