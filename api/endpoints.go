package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"github.com/safing/entropool/formats/dsd"
	"github.com/safing/entropool/log"
)

// Endpoint describes an API Endpoint. Path is required, as is exactly one
// of the handler functions.
type Endpoint struct {
	Path     string
	Method   string
	MimeType string

	// ActionFunc is for simple actions with a return message for the user.
	ActionFunc ActionFunc `json:"-"`

	// DataFunc is for returning raw data.
	DataFunc DataFunc `json:"-"`

	// StructFunc is for returning any kind of struct. The response format is
	// negotiated with the Accept header.
	StructFunc StructFunc `json:"-"`

	// HandlerFunc is the raw http handler.
	HandlerFunc http.HandlerFunc `json:"-"`

	// Documentation Metadata.

	Name        string
	Description string
	Parameters  []Parameter `json:",omitempty"`
}

// Parameter describes a parameterized variation of an endpoint.
type Parameter struct {
	Method      string
	Field       string
	Value       string
	Description string
}

type (
	// ActionFunc is for simple actions with a return message for the user.
	ActionFunc func(ar *Request) (msg string, err error)

	// DataFunc is for returning raw data.
	DataFunc func(ar *Request) (data []byte, err error)

	// StructFunc is for returning any kind of struct.
	StructFunc func(ar *Request) (i interface{}, err error)
)

// MIME Types.
const (
	MimeTypeJSON string = "application/json"
	MimeTypeText string = "text/plain"
)

const (
	apiV1Path = "/api/v1/"

	// maxInputSize bounds request bodies, such as submitted entropy.
	maxInputSize = 20 << 20
)

var (
	endpoints     = make(map[string]*Endpoint)
	endpointsMux  = mux.NewRouter()
	endpointsLock sync.RWMutex
)

func init() {
	RegisterHandler(apiV1Path+"{endpointPath:.+}", &endpointHandler{})
}

// RegisterEndpoint registers a new endpoint. An error will be returned if it
// does not pass the sanity checks.
func RegisterEndpoint(e Endpoint) error {
	if err := e.check(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEndpoint, err)
	}

	endpointsLock.Lock()
	defer endpointsLock.Unlock()

	key := e.Method + " " + e.Path
	if _, ok := endpoints[key]; ok {
		return ErrAlreadyRegistered
	}
	endpoints[key] = &e
	endpointsMux.Handle(apiV1Path+e.Path, &e).Methods(e.Method)
	return nil
}

// check validates the endpoint and fills in the default method and mime type.
func (e *Endpoint) check() error {
	if strings.TrimSpace(e.Path) == "" {
		return errors.New("path is missing")
	}

	switch e.Method {
	case "":
		e.Method = http.MethodGet
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return fmt.Errorf("unsupported method %s", e.Method)
	}

	set := 0
	mimeType := MimeTypeText
	for _, isSet := range []bool{e.ActionFunc != nil, e.DataFunc != nil, e.HandlerFunc != nil} {
		if isSet {
			set++
		}
	}
	if e.StructFunc != nil {
		set++
		mimeType = MimeTypeJSON
	}
	if set != 1 {
		return errors.New("exactly one function must be set")
	}

	if e.MimeType == "" {
		e.MimeType = mimeType
	}
	return nil
}

// ExportEndpoints returns the registered endpoints sorted by path and
// method. The returned endpoints must not be modified.
func ExportEndpoints() []*Endpoint {
	endpointsLock.RLock()
	defer endpointsLock.RUnlock()

	eps := make([]*Endpoint, 0, len(endpoints))
	for _, ep := range endpoints {
		eps = append(eps, ep)
	}
	sort.Slice(eps, func(i, j int) bool {
		if eps[i].Path != eps[j].Path {
			return eps[i].Path < eps[j].Path
		}
		return eps[i].Method < eps[j].Method
	})
	return eps
}

// matchEndpoint finds the endpoint for the request and merges its URL
// variables into the API request. The result is cached in the request.
func matchEndpoint(r *http.Request, ar *Request) (ep *Endpoint, methodMismatch bool) {
	if cached, ok := ar.HandlerCache.(*Endpoint); ok {
		return cached, false
	}

	endpointsLock.RLock()
	defer endpointsLock.RUnlock()

	var match mux.RouteMatch
	if !endpointsMux.Match(r, &match) || match.MatchErr != nil {
		return nil, errors.Is(match.MatchErr, mux.ErrMethodMismatch)
	}

	ar.Route = match.Route
	for k, v := range match.Vars {
		ar.URLVars[k] = v
	}
	ep, ok := match.Handler.(*Endpoint)
	if ok {
		ar.HandlerCache = ep
	}
	return ep, false
}

type endpointHandler struct{}

// ServeHTTP dispatches the request to the matching endpoint.
func (eh *endpointHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ar := GetAPIRequest(r)
	if ar == nil {
		http.NotFound(w, r)
		return
	}

	ep, methodMismatch := matchEndpoint(r, ar)
	switch {
	case ep != nil:
		ep.ServeHTTP(w, r)
	case methodMismatch:
		http.Error(w, "Method not allowed.", http.StatusMethodNotAllowed)
	default:
		http.NotFound(w, r)
	}
}

// ServeHTTP handles the http request.
func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ar := GetAPIRequest(r)
	if ar == nil {
		http.NotFound(w, r)
		return
	}

	if e.HandlerFunc != nil {
		e.HandlerFunc(w, r)
		return
	}

	if r.Method == http.MethodPost || r.Method == http.MethodPut {
		data, status, err := readBody(r)
		if err != nil {
			http.Error(w, err.Error(), status)
			return
		}
		ar.InputData = data
	}

	data, mimeType, err := e.respond(ar)
	if err != nil {
		WriteError(w, err)
		return
	}

	if strings.HasPrefix(mimeType, "text/") || mimeType == MimeTypeJSON {
		mimeType += "; charset=utf-8"
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Warningf("api: failed to write response: %s", err)
	}
}

// respond runs the endpoint function and returns the response body.
func (e *Endpoint) respond(ar *Request) (data []byte, mimeType string, err error) {
	switch {
	case e.ActionFunc != nil:
		msg, err := e.ActionFunc(ar)
		if err != nil {
			return nil, "", err
		}
		if !strings.HasSuffix(msg, "\n") {
			msg += "\n"
		}
		return []byte(msg), e.MimeType, nil

	case e.DataFunc != nil:
		data, err := e.DataFunc(ar)
		return data, e.MimeType, err

	case e.StructFunc != nil:
		v, err := e.StructFunc(ar)
		if err != nil || v == nil {
			return nil, e.MimeType, err
		}
		data, mimeType, _, err := dsd.MimeDump(v, ar.Request.Header.Get("Accept"))
		return data, mimeType, err
	}

	return nil, "", errors.New("missing handler")
}

// readBody reads the full request body, up to maxInputSize.
func readBody(r *http.Request) ([]byte, int, error) {
	if r.ContentLength > maxInputSize {
		return nil, http.StatusRequestEntityTooLarge, errors.New("too much input data")
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxInputSize+1))
	switch {
	case err != nil:
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to read body: %w", err)
	case len(data) > maxInputSize:
		return nil, http.StatusRequestEntityTooLarge, errors.New("too much input data")
	}
	return data, http.StatusOK, nil
}
