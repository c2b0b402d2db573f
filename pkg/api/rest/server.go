// Package rest exposes the daemon's HTTP surface: read-only status,
// health and log endpoints backed by registry snapshots, and the job
// intake that forwards transition requests to the dispatcher. Reads never
// touch the lifecycle locks, so they stay responsive during long
// transitions.
package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/availops/orbitd/pkg/dispatcher"
	"github.com/availops/orbitd/pkg/driver"
	"github.com/availops/orbitd/pkg/log"
	"github.com/availops/orbitd/pkg/registry"
)

// Options configures the REST server.
type Options struct {
	// Addr is the listen address, host:port.
	Addr string

	// APIKeys guard the job intake. Empty disables auth.
	APIKeys []string

	// JobTimeout bounds a synchronous job request. Zero means 30 minutes.
	JobTimeout time.Duration
}

// Server serves the orbitd HTTP API.
type Server struct {
	logger     log.Logger
	registry   *registry.Registry
	dispatcher *dispatcher.Dispatcher
	driver     driver.Driver
	options    Options
	httpServer *http.Server
}

// NewServer creates a REST server over a registry, dispatcher and driver.
func NewServer(reg *registry.Registry, disp *dispatcher.Dispatcher, drv driver.Driver, logger log.Logger, options Options) *Server {
	if logger == nil {
		logger = log.GetDefaultLogger().WithComponent("rest")
	} else {
		logger = logger.WithComponent("rest")
	}
	if options.JobTimeout <= 0 {
		options.JobTimeout = 30 * time.Minute
	}

	s := &Server{
		logger:     logger,
		registry:   reg,
		dispatcher: disp,
		driver:     drv,
		options:    options,
	}
	s.httpServer = &http.Server{
		Addr:    options.Addr,
		Handler: s.routes(),
	}
	return s
}

// Handler returns the fully assembled HTTP handler. Exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()

	common := Chain(Recovery(s.logger), Logger(s.logger))

	read := r.PathPrefix("/v1/rollups/{id}").Subrouter()
	read.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	read.HandleFunc("/logs", s.handleLogs).Methods(http.MethodGet)
	read.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	jobs := r.PathPrefix("/v1/rollups/{id}/jobs").Subrouter()
	jobs.HandleFunc("/{op}", s.handleJob).Methods(http.MethodPost)
	jobs.Use(mux.MiddlewareFunc(APIKey(s.options.APIKeys, s.logger)))
	jobs.Use(mux.MiddlewareFunc(Timeout(s.options.JobTimeout)))

	r.HandleFunc("/v1/rollups", s.handleList).Methods(http.MethodGet)
	r.Handle("/v1/rollups",
		APIKey(s.options.APIKeys, s.logger)(http.HandlerFunc(s.handleCreate))).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.handleLiveness).Methods(http.MethodGet)

	return common(r)
}

// Start begins serving. It blocks until the listener fails or Stop is
// called.
func (s *Server) Start() error {
	s.logger.Info("REST server listening", log.Str("addr", s.options.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("REST server failed: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping REST server")
	return s.httpServer.Shutdown(ctx)
}
