package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// API Errors.
var (
	// ErrBadRequest is returned for invalid input and maps to status 400.
	ErrBadRequest = errors.New("bad request")

	// ErrInvalidEndpoint is returned when an invalid endpoint is registered.
	ErrInvalidEndpoint = errors.New("endpoint is invalid")

	// ErrAlreadyRegistered is returned when there already is an endpoint with
	// the same path and method registered.
	ErrAlreadyRegistered = errors.New("an endpoint for this path is already registered")
)

// internal errors.
var (
	errNoHijacker = errors.New("response does not implement http.Hijacker")
)

type errorStatus struct {
	err    error
	status int
}

var (
	errorStatuses = []errorStatus{
		{ErrBadRequest, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
	}
	errorStatusesLock sync.RWMutex
)

// RegisterErrorStatus registers the HTTP status code that is returned for
// errors matching err.
func RegisterErrorStatus(err error, status int) {
	errorStatusesLock.Lock()
	defer errorStatusesLock.Unlock()

	errorStatuses = append(errorStatuses, errorStatus{err: err, status: status})
}

// StatusForError returns the HTTP status code for the given error.
// Unknown errors are internal server errors.
func StatusForError(err error) int {
	errorStatusesLock.RLock()
	defer errorStatusesLock.RUnlock()

	for _, es := range errorStatuses {
		if errors.Is(err, es.err) {
			return es.status
		}
	}
	return http.StatusInternalServerError
}

// BadRequest returns a new error that wraps ErrBadRequest.
func BadRequest(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, a...))
}

// WriteError writes the error with the matching status code.
func WriteError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), StatusForError(err))
}
