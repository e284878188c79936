// Package server runs the public API and management HTTP servers with
// graceful startup and shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/mealboard/marketplace/pkg/observability/logger"
	"github.com/mealboard/marketplace/pkg/server/router"
)

const defaultShutdownTimeout = 30 * time.Second

// Server wraps http.Server with configurable timeouts and graceful lifecycle management.
type Server struct {
	name       string
	router     router.Router
	logger     logger.Logger
	config     Config
	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

// Config holds configuration for an HTTP server. Port 0 binds a free port.
type Config struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewServer creates a server named name (used in logs) serving r.
func NewServer(name string, cfg Config, r router.Router, log logger.Logger) *Server {
	return &Server{
		name:   name,
		router: r,
		logger: log.With("server", name),
		config: cfg,
	}
}

// Start binds the port and serves until ctx is cancelled, then shuts down
// gracefully. It returns an error if the port cannot be bound or serving fails.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("%s server failed to start: %w", s.name, err)
	}

	httpServer := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	s.mu.Lock()
	s.httpServer = httpServer
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("starting server", "addr", ln.Addr().String())

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("%s server failed: %w", s.name, err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown stops accepting connections and waits for in-flight requests
// until the shutdown timeout elapses.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	httpServer := s.httpServer
	s.mu.Unlock()
	if httpServer == nil {
		return nil
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.logger.Info("shutting down server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s server shutdown failed: %w", s.name, err)
	}
	s.logger.Info("server shutdown complete")
	return nil
}

// Addr returns the bound address, or "" before Start has bound the port.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Router returns the router for registering additional routes.
func (s *Server) Router() router.Router {
	return s.router
}
