package dispatch

import "errors"

// Errors.
var (
	ErrInvalidReference   = errors.New("unknown entropy address")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrComputationFailed  = errors.New("computation failed")
	ErrRejected           = errors.New("job was rejected")
	ErrNotQueued          = errors.New("job is not queued")
	ErrUnknownJob         = errors.New("unknown job")
	ErrClosed             = errors.New("dispatcher is closed")
)
