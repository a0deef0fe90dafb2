package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/safing/entropool/log"
)

var (
	// mainMux is the main mux router.
	mainMux = mux.NewRouter()

	// server is the main server.
	server = &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
	}
	handlerLock sync.RWMutex
)

// RegisterHandler registers a handler with the API endoint.
func RegisterHandler(path string, handler http.Handler) *mux.Route {
	handlerLock.Lock()
	defer handlerLock.Unlock()
	return mainMux.Handle(path, handler)
}

// RegisterHandleFunc registers a handle function with the API endoint.
func RegisterHandleFunc(path string, handleFunc func(http.ResponseWriter, *http.Request)) *mux.Route {
	handlerLock.Lock()
	defer handlerLock.Unlock()
	return mainMux.HandleFunc(path, handleFunc)
}

// Handler returns the main API handler.
func Handler() http.Handler {
	return &mainHandler{mux: mainMux}
}

func startServer() {
	// Configure server.
	server.Addr = getListenAddress()
	server.Handler = Handler()

	// Start server manager.
	module.StartServiceWorker("http server manager", 0, serverManager)
}

func stopServer() error {
	// Check if the server is running.
	if server.Addr == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return server.Shutdown(ctx)
}

// Serve starts serving the API endpoint.
func serverManager(_ context.Context) error {
	// start serving
	log.Infof("api: starting to listen on %s", server.Addr)
	err := server.ListenAndServe()
	// return on shutdown error
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	// log error and restart
	log.Errorf("api: http endpoint failed: %s - restarting server", err)
	return fmt.Errorf("http endpoint failed: %w", err)
}

type mainHandler struct {
	mux *mux.Router
}

func (mh *mainHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = module.RunWorker("http request", func(_ context.Context) error {
		return mh.handle(w, r)
	})
}

func (mh *mainHandler) handle(w http.ResponseWriter, r *http.Request) error {
	// Setup context trace logging.
	lrw := NewLoggingResponseWriter(w, r)

	// Add request context.
	apiRequest := &Request{
		Request: r,
		URLVars: make(map[string]string),
	}
	ctx := context.WithValue(r.Context(), RequestContextKey, apiRequest)
	// Add context back to request.
	r = r.WithContext(ctx)
	apiRequest.Request = r

	started := time.Now()
	defer func() {
		log.Debugf(
			"api request: %s %d %s %s (%s)",
			r.RemoteAddr, lrw.Status, r.Method, r.RequestURI, time.Since(started).Round(time.Microsecond),
		)
	}()

	// Recover from panics in handlers.
	defer func() {
		if panicValue := recover(); panicValue != nil {
			log.Errorf("api: handler panic on %s: %v\n%s", r.RequestURI, panicValue, debug.Stack())
			http.Error(lrw, "internal server error", http.StatusInternalServerError)
		}
	}()

	// Get handler for request.
	// Gorilla does not support handling this on our own very well.
	// See github.com/gorilla/mux.ServeHTTP for reference.
	var match mux.RouteMatch
	var handler http.Handler
	handlerLock.RLock()
	if mh.mux.Match(r, &match) {
		handler = match.Handler
		apiRequest.Route = match.Route
		apiRequest.URLVars = match.Vars
	}
	handlerLock.RUnlock()

	// Be sure that URLVars always is a map.
	if apiRequest.URLVars == nil {
		apiRequest.URLVars = make(map[string]string)
	}

	// Handle request.
	switch {
	case handler != nil:
		handler.ServeHTTP(lrw, r)
	case errors.Is(match.MatchErr, mux.ErrMethodMismatch):
		http.Error(lrw, "Method not allowed.", http.StatusMethodNotAllowed)
	default: // handler == nil or other error
		http.Error(lrw, "Not found.", http.StatusNotFound)
	}

	return nil
}
