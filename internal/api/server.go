package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ignite/leadpage/internal/config"
)

// Server is the HTTP front of the builder API and the public contact links.
type Server struct {
	config  config.ServerConfig
	handler http.Handler
	server  *http.Server
}

// Deps are the handlers the server routes to. Redirects may be nil when the
// contact links are served by a separate process.
type Deps struct {
	Landing   *LandingHandlers
	Redirects RedirectHandler
	Health    *HealthChecker
	Owners    *OwnerResolver
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	return &Server{
		config:  cfg,
		handler: SetupRoutes(cfg, deps),
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.handler,
		// Image uploads are the largest requests, capped at a few MB.
		ReadTimeout:       60 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		// Content regeneration may hold a request for the Bedrock timeout.
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.handler
}
