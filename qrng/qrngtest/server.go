// Package qrngtest provides a stub of the remote random number service.
package qrngtest

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
)

// Server is a stub service that answers like the real one.
type Server struct {
	*httptest.Server

	requests atomic.Int64
	units    atomic.Int64

	lock     sync.Mutex
	failNext int
	handler  http.HandlerFunc
}

// NewServer starts a new stub service. Close it when done.
func NewServer() *Server {
	s := &Server{}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// FailNext makes the next n requests fail with a server error.
func (s *Server) FailNext(n int) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.failNext = n
}

// SetHandler replaces the default behavior with a custom handler.
func (s *Server) SetHandler(fn http.HandlerFunc) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.handler = fn
}

// Requests returns the number of requests received.
func (s *Server) Requests() int {
	return int(s.requests.Load())
}

// Units returns the number of units served successfully.
func (s *Server) Units() int {
	return int(s.units.Load())
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)

	s.lock.Lock()
	handler := s.handler
	fail := s.failNext > 0
	if fail {
		s.failNext--
	}
	s.lock.Unlock()

	switch {
	case fail:
		http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
		return
	case handler != nil:
		handler(w, r)
		return
	}

	length, err := strconv.Atoi(r.URL.Query().Get("length"))
	if err != nil || length <= 0 {
		http.Error(w, "invalid length", http.StatusBadRequest)
		return
	}
	unitType := r.URL.Query().Get("type")

	raw := make([]byte, length)
	_, _ = rand.Read(raw)

	var data interface{}
	switch unitType {
	case "uint8":
		units := make([]int, length)
		for i, b := range raw {
			units[i] = int(b)
		}
		data = units
	case "hex16":
		units := make([]string, length)
		for i, b := range raw {
			units[i] = hex.EncodeToString([]byte{b})
		}
		data = units
	default:
		http.Error(w, "invalid type", http.StatusBadRequest)
		return
	}

	s.units.Add(int64(length))
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"type":    unitType,
		"length":  length,
		"size":    1,
		"data":    data,
		"success": true,
	})
}
