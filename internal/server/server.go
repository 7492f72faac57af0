// Package server provides the HTTP server and router for the registry.
//
// Endpoints:
//   - GET /packages/metadata/{name}?v=spec - package descriptor as JSON
//   - GET /package/{name}/{ver}            - raw package archive
//   - GET /version                         - server build version
//   - GET /health                          - health check
//   - GET /metrics                         - Prometheus metrics
//
// The server owns only routing, parameter decoding, and the mapping of
// registry outcomes to HTTP status codes. Requests are handled
// independently; the registry root is the only shared state and it is
// immutable.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/paxpkg/registry/internal/config"
	"github.com/paxpkg/registry/internal/metrics"
	"github.com/paxpkg/registry/internal/registry"
)

// Server is the registry HTTP server.
type Server struct {
	cfg      *config.Config
	registry *registry.Registry
	logger   *slog.Logger
	version  string
	http     *http.Server
}

// New creates a new Server. version is the build version string reported by
// the /version endpoint.
func New(cfg *config.Config, reg *registry.Registry, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		registry: reg,
		logger:   logger,
		version:  version,
	}
}

// Routes builds the router with all endpoints and middleware mounted.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/packages/metadata/{name}", s.handleMetadata)
	r.Get("/package/{name}/{ver}", s.handleArchive)
	r.Get("/version", s.handleVersion)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // Large archives need time
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting server",
		"listen", s.cfg.Listen,
		"directory", s.registry.Root(),
		"version", s.version)

	return s.http.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
	}
	return nil
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprint(w, s.version)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := os.Stat(s.registry.Root()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = fmt.Fprintf(w, "registry root error: %v", err)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "ok")
}
