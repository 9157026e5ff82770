// Package core provides the API chassis for the SkyCast service. It creates
// a chi router and enforces cross-cutting concerns (security, logging,
// observability, and error handling) before requests reach domain-specific
// handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"skycast/internal/config"
	"skycast/internal/telemetry"
)

// Server encapsulates all dependencies for the SkyCast API, allowing for
// easy injection during testing and distinct configuration for different
// environments.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator
	Metrics   telemetry.MetricsCollector

	// HealthProbes are checked concurrently by the /health endpoint.
	HealthProbes []HealthProbe

	// V1RouteRegistrars are populated by the application entry point so that
	// handler packages can register routes without importing core.
	V1RouteRegistrars []func(chi.Router)

	router *chi.Mux
}

// NewServer initializes dependencies, sets up the router, and prepares the
// server for route mounting. The caller is responsible for mounting routes
// (via MountRoutes) after construction; this separation allows tests to
// customize route registration.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler interface for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
// This is used internally by route-mounting methods and tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown performs a graceful termination of server-held resources. The
// HTTP listener itself is drained by the caller; this hook exists so probes
// or collectors that hold connections can be closed in one place.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")
	for _, probe := range s.HealthProbes {
		if closer, ok := probe.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				s.Logger.Error("error closing health probe", "probe", probe.Name(), "error", err)
			}
		}
	}
	s.Logger.Info("server shutdown complete")
	return nil
}
