package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"keystone-mrm/arbiter/pkg/config"
	"keystone-mrm/arbiter/pkg/decision"
	"keystone-mrm/arbiter/pkg/decision/recorder"
	"keystone-mrm/arbiter/pkg/rules/ast"
	"keystone-mrm/arbiter/pkg/rules/engine"
	"keystone-mrm/arbiter/pkg/rules/source"
	"keystone-mrm/arbiter/pkg/telemetry"
)

// RulesetManager is the ruleset cache as seen by the ruleset endpoints.
type RulesetManager interface {
	Current() *ast.Ruleset
	Reload(ctx context.Context) error
	Status() source.Status
}

// Dependencies are the components the HTTP handlers call into. Store and
// Recorder may be nil when decision persistence is disabled.
type Dependencies struct {
	Engine    *engine.Engine
	Rules     RulesetManager
	Store     decision.Storage
	Recorder  *recorder.Recorder
	Telemetry *telemetry.Telemetry

	// PersistByDefault records every evaluation unless the request opts out.
	PersistByDefault bool

	// AsyncRecord hands records to the recorder's background worker instead
	// of writing them before responding.
	AsyncRecord bool
}

// Server is the HTTP API server.
type Server struct {
	config       *config.ServerConfig
	deps         Dependencies
	logger       *slog.Logger
	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	stopOnce     sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a server. A nil cfg uses the default server settings.
func NewServer(cfg *config.ServerConfig, deps Dependencies) (*Server, error) {
	if cfg == nil {
		cfg = &config.NewDefaultConfig().Server
	}
	if deps.Engine == nil {
		return nil, errors.New("server requires an engine")
	}
	if deps.Rules == nil {
		return nil, errors.New("server requires a ruleset manager")
	}
	if deps.Telemetry == nil {
		tel, err := telemetry.New(nil, telemetry.BuildInfo{}, nil)
		if err != nil {
			return nil, err
		}
		deps.Telemetry = tel
	}

	return &Server{
		config:       cfg,
		deps:         deps,
		logger:       deps.Telemetry.Logger().With("component", "server"),
		shutdownChan: make(chan struct{}),
	}, nil
}

// Start serves HTTP and blocks until ctx is cancelled, SIGINT or SIGTERM
// arrives, Stop is called, or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddress,
		Handler:      s.routes(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting api server",
			"address", s.config.ListenAddress,
			"cors_enabled", s.config.CORS.Enabled,
		)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	case <-s.shutdownChan:
		s.logger.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Stop asks a running Start to shut down.
func (s *Server) Stop() {
	s.stopOnce.Do(func() { close(s.shutdownChan) })
}

// Shutdown gracefully drains in-flight requests within ShutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("api server stopped")
	})

	return shutdownErr
}

// IsRunning reports whether Start is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the fully wired router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.routes()
}
