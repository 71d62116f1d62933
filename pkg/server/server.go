package server

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"chessgames/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Status is the body of the /health and /ready probes
type Status struct {
	Status        string `json:"status"`
	SchemaVersion string `json:"schema_version,omitempty"`
	Model         string `json:"model,omitempty"`
}

// Server exposes liveness, readiness and Prometheus metrics for the scorer.
// Readiness stays false until a model and its schema have been loaded.
type Server struct {
	httpServer *http.Server
	logger     *logger.Logger

	mu      sync.RWMutex
	serving *Status
}

// New creates a new observability server
func New(addr string, l *logger.Logger) *Server {
	s := &Server{logger: l}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Handler exposes the routes, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// MarkReady records the schema version and model being served and flips
// the readiness probe
func (s *Server) MarkReady(schemaVersion, model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serving = &Status{Status: "ready", SchemaVersion: schemaVersion, Model: model}
}

// MarkNotReady takes the scorer out of rotation, e.g. while draining
func (s *Server) MarkNotReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serving = nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.reply(w, http.StatusOK, Status{Status: "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	serving := s.serving
	s.mu.RUnlock()

	if serving == nil {
		s.reply(w, http.StatusServiceUnavailable, Status{Status: "loading"})
		return
	}
	s.reply(w, http.StatusOK, *serving)
}

func (s *Server) reply(w http.ResponseWriter, code int, body Status) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("failed to write probe response", zap.Error(err))
	}
}

// Start runs the HTTP server until Shutdown
func (s *Server) Start() error {
	s.logger.Info("starting observability server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
