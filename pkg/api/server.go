// Package api exposes the Kp index over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/swxkit/kpindex/pkg/index"
)

// Server implements the HTTP API server.
//
// A query can trigger an internal refresh of the index, so even reads
// take the write lock; the index itself does no locking.
type Server struct {
	index  *index.Index
	addr   string
	server *http.Server
	mu     sync.Mutex
}

// NewServer creates a new API server around the given index.
func NewServer(addr string, ix *index.Index) *Server {
	return &Server{
		index: ix,
		addr:  addr,
	}
}

// Handler returns the route table, exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/kp", s.handleKp)
	mux.HandleFunc("/api/v1/covering", s.handleCovering)
	mux.HandleFunc("/api/v1/refresh", s.handleRefresh)
	mux.HandleFunc("/health", s.handleHealth)

	return mux
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleKp handles Kp lookup requests.
func (s *Server) handleKp(w http.ResponseWriter, r *http.Request) {
	t, ok := parseTimeParam(w, r)
	if !ok {
		return
	}

	discretize := r.URL.Query().Get("discretize") != "false"

	s.mu.Lock()
	key, kp, err := s.index.Query(t, discretize)
	s.mu.Unlock()

	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"time": key.Format(time.RFC3339),
		"kp":   kp,
	})
}

// handleCovering handles covering-instant requests.
func (s *Server) handleCovering(w http.ResponseWriter, r *http.Request) {
	t, ok := parseTimeParam(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	key, found, err := s.index.Covering(t)
	s.mu.Unlock()

	if err != nil {
		writeError(w, err)
		return
	}

	if !found {
		http.Error(w, "no kp value covers the requested instant", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"time": key.Format(time.RFC3339),
	})
}

// handleRefresh handles explicit refresh requests.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	err := s.index.Refresh()
	n := s.index.Len()
	s.mu.Unlock()

	if err != nil {
		http.Error(w, fmt.Sprintf("Refresh failed: %v", err), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "success",
		"samples": n,
	})
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	n := s.index.Len()
	first, _ := s.index.First()
	last, _ := s.index.Last()
	s.mu.Unlock()

	resp := map[string]interface{}{
		"status":  "healthy",
		"samples": n,
	}
	if n > 0 {
		resp["first"] = first.Format(time.RFC3339)
		resp["last"] = last.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// parseTimeParam parses the required RFC3339 "time" query parameter,
// writing a 400 on failure.
func parseTimeParam(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("time")
	if raw == "" {
		http.Error(w, "Missing time parameter", http.StatusBadRequest)
		return time.Time{}, false
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		http.Error(w, "Invalid time parameter, want RFC3339", http.StatusBadRequest)
		return time.Time{}, false
	}
	return t, true
}

// writeError maps index errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, index.ErrBeforeEarliest),
		errors.Is(err, index.ErrLaterThanLatest):
		status = http.StatusNotFound
	case errors.Is(err, index.ErrFutureTimestamp):
		status = http.StatusBadRequest
	case errors.Is(err, index.ErrCacheEmpty),
		errors.Is(err, index.ErrSourceUnavailable):
		status = http.StatusServiceUnavailable
	}
	http.Error(w, err.Error(), status)
}
