package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// Request is a support struct to pool more request related information.
type Request struct {
	// Request is the http request.
	Request *http.Request

	// InputData contains the request body for write operations.
	InputData []byte

	// Route of this request.
	Route *mux.Route

	// URLVars contains the URL variables extracted by the gorilla mux.
	URLVars map[string]string

	// HandlerCache can be used by handlers to cache data between handlers within a request.
	HandlerCache interface{}
}

// apiRequestContextKey is a key used for the context key/value storage.
type apiRequestContextKey struct{}

// RequestContextKey is the key used to add the API request to the context.
var RequestContextKey = apiRequestContextKey{}

// Ctx is a shortcut to access the request context.
func (ar *Request) Ctx() context.Context {
	return ar.Request.Context()
}

// GetAPIRequest returns the API Request of the given http request.
func GetAPIRequest(r *http.Request) *Request {
	ar, ok := r.Context().Value(RequestContextKey).(*Request)
	if ok {
		return ar
	}
	return nil
}

// QueryInt returns the integer query parameter with the given name, or
// fallback if it is not set.
func (ar *Request) QueryInt(name string, fallback int64) (int64, error) {
	value := ar.Request.URL.Query().Get(name)
	if value == "" {
		return fallback, nil
	}

	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, BadRequest("query parameter %s is not an integer: %q", name, value)
	}
	return n, nil
}

// QueryFloat returns the float query parameter with the given name, or
// fallback if it is not set.
func (ar *Request) QueryFloat(name string, fallback float64) (float64, error) {
	value := ar.Request.URL.Query().Get(name)
	if value == "" {
		return fallback, nil
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, BadRequest("query parameter %s is not a number: %q", name, value)
	}
	return f, nil
}

// QueryBool returns the boolean query parameter with the given name, or
// fallback if it is not set.
func (ar *Request) QueryBool(name string, fallback bool) (bool, error) {
	value := ar.Request.URL.Query().Get(name)
	if value == "" {
		return fallback, nil
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, BadRequest("query parameter %s is not a boolean: %q", name, value)
	}
	return b, nil
}
