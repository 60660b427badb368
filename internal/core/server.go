// Package core provides the API chassis for the SunTracker service. It
// creates the chi router and enforces cross-cutting concerns -- panic
// recovery, request correlation, logging, CORS, security headers, and
// response compression -- before requests reach domain-specific handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"suntracker/internal/config"
)

// Server encapsulates the dependencies of the HTTP API, allowing for easy
// injection during testing and distinct configuration per environment.
type Server struct {
	Config *config.Config
	Logger *slog.Logger

	// HealthProbes are executed by the /health endpoint. The entry point
	// registers one probe per critical dependency (currently the database).
	HealthProbes []HealthProbe

	// V1RouteRegistrars are invoked by MountRoutes to register domain
	// handler routes under /v1. This indirection avoids import cycles
	// between core and handler packages.
	V1RouteRegistrars []func(chi.Router)

	router *chi.Mux
}

// NewServer prepares the server for route mounting. The caller is responsible
// for appending route registrars and calling MountRoutes afterwards; this
// separation allows tests to customize route registration.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config: cfg,
		Logger: logger,
		router: chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler interface for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration in tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown performs a graceful termination of server-held resources.
// Database pools are owned and closed by the entry point.
func (s *Server) Shutdown(_ context.Context) error {
	s.Logger.Info("server shutdown complete")
	return nil
}
