// Package server provides the HTTP server for the relay.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/dispatch"
	"mercator-hq/relay/pkg/processing/tokens"
	"mercator-hq/relay/pkg/proxy"
	"mercator-hq/relay/pkg/proxy/handlers"
	"mercator-hq/relay/pkg/proxy/middleware"
	"mercator-hq/relay/pkg/session"
	"mercator-hq/relay/pkg/telemetry/metrics"
	"mercator-hq/relay/pkg/telemetry/tracing"
)

// Dependencies are the components the server routes requests to.
type Dependencies struct {
	Pool       *session.Pool
	Dispatcher *dispatch.Dispatcher
	Mapper     *proxy.ModelMapper
	Policy     *middleware.CredentialPolicy
	Estimator  tokens.Estimator

	// Metrics is optional. When nil, or when metrics are disabled in the
	// configuration, no metrics endpoint is mounted.
	Metrics *metrics.Collector

	// Version is reported by the root banner.
	Version string
}

// Server is the relay HTTP server.
type Server struct {
	config *config.Config
	deps   Dependencies

	httpServer   *http.Server
	listener     net.Listener
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New creates a server. It does not start listening.
func New(cfg *config.Config, deps Dependencies) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server config is required")
	}
	if deps.Pool == nil || deps.Dispatcher == nil || deps.Mapper == nil || deps.Policy == nil {
		return nil, errors.New("pool, dispatcher, model mapper and credential policy are required")
	}
	if deps.Estimator == nil {
		deps.Estimator = tokens.NewCharEstimator(tokens.DefaultCharsPerToken)
	}

	return &Server{
		config:       cfg,
		deps:         deps,
		shutdownChan: make(chan struct{}),
	}, nil
}

// Start listens on the configured address and serves until ctx is done, a
// SIGINT/SIGTERM arrives, Stop is called, or the listener fails. It then
// shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	listener, err := net.Listen("tcp", s.config.Proxy.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.Proxy.ListenAddress, err)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    s.config.Proxy.ReadTimeout,
		WriteTimeout:   s.config.Proxy.WriteTimeout,
		IdleTimeout:    s.config.Proxy.IdleTimeout,
		MaxHeaderBytes: s.config.Proxy.MaxHeaderBytes,
	}
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting relay server",
			"address", listener.Addr().String(),
			"key_mode", s.deps.Policy.Mode(),
		)

		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	case <-s.shutdownChan:
		slog.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Stop asks a running Start to shut down.
func (s *Server) Stop() {
	select {
	case <-s.shutdownChan:
	default:
		close(s.shutdownChan)
	}
}

// Shutdown gracefully stops the HTTP server, waiting up to the configured
// shutdown timeout for in-flight requests. The pool and recorders are owned
// by the caller and are not closed here.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown", "timeout", s.config.Proxy.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Proxy.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("relay server stopped")
	})

	return shutdownErr
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Handler returns the routed HTTP handler with the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

func (s *Server) metricsPath() string {
	if s.deps.Metrics == nil || !s.config.Telemetry.Metrics.Enabled {
		return ""
	}
	return s.config.Telemetry.Metrics.Path
}

// setupRoutes configures HTTP routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()
	d := s.deps
	upstream := handlers.UpstreamFromConfig(s.config.Upstream)
	protected := middleware.CredentialMiddleware(d.Policy)

	mux.Handle(handlers.PathChatCompletions, protected(handlers.NewChatHandler(d.Pool, d.Dispatcher, d.Mapper, upstream)))
	mux.Handle("POST "+handlers.PathCancel, protected(handlers.NewCancelHandler(d.Pool, d.Dispatcher)))
	mux.Handle(handlers.PathCountTokens, protected(handlers.NewCountTokensHandler(d.Estimator)))
	mux.Handle(handlers.PathPool, handlers.NewPoolHandler(d.Pool, d.Policy))
	mux.Handle(handlers.PathHealth, handlers.NewHealthHandler(d.Policy, d.Pool, upstream))
	mux.Handle(handlers.PathTestConnection, handlers.NewTestConnectionHandler(d.Pool, d.Dispatcher, d.Mapper, d.Policy, upstream))

	metricsPath := s.metricsPath()
	if metricsPath != "" {
		mux.Handle("GET "+metricsPath, d.Metrics.Handler())
	}
	mux.Handle("/{$}", handlers.NewRootHandler(d.Version, upstream, d.Mapper, d.Policy, metricsPath))

	var handler http.Handler = mux

	handler = tracing.HTTPMiddleware(handler)
	handler = middleware.CORSMiddleware(s.config.Proxy.CORS)(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RequestIDMiddleware(handler)

	// Recovery middleware (outermost)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}
