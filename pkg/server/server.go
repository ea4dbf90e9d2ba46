package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"rxsentinel/arbiter/pkg/config"
	"rxsentinel/arbiter/pkg/ledger"
	"rxsentinel/arbiter/pkg/orchestrator"
	"rxsentinel/arbiter/pkg/server/middleware"
	"rxsentinel/arbiter/pkg/telemetry/health"
	"rxsentinel/arbiter/pkg/telemetry/metrics"
	"rxsentinel/arbiter/pkg/telemetry/tracing"
)

// Server is the HTTP front of the verdict engine: case evaluation,
// override recording, and the audit export surface, plus the operational
// endpoints.
type Server struct {
	cfg  *config.Config
	orch *orchestrator.Orchestrator
	led  *ledger.Ledger

	log     *slog.Logger
	metrics *metrics.Collector
	health  *health.Checker
	version health.VersionInfo

	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	running      bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics mounts the collector's handler at the configured metrics
// path and lets handlers record request metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) { s.metrics = c }
}

// WithHealth mounts liveness and readiness endpoints backed by the
// checker.
func WithHealth(h *health.Checker) Option {
	return func(s *Server) { s.health = h }
}

// WithVersion sets the build information served at /version.
func WithVersion(v health.VersionInfo) Option {
	return func(s *Server) { s.version = v }
}

// New creates a Server. The orchestrator and ledger are required; health,
// metrics, and version info are optional.
func New(cfg *config.Config, orch *orchestrator.Orchestrator, led *ledger.Ledger, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if orch == nil {
		return nil, errors.New("orchestrator is nil")
	}
	if led == nil {
		return nil, errors.New("ledger is nil")
	}

	s := &Server{
		cfg:          cfg,
		orch:         orch,
		led:          led,
		log:          slog.Default(),
		shutdownChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start runs the server and blocks until the context is cancelled, a
// shutdown signal arrives, or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server is already running")
	}
	s.running = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:           s.cfg.Server.ListenAddress,
		Handler:        s.Handler(),
		ReadTimeout:    s.cfg.Server.ReadTimeout,
		WriteTimeout:   s.cfg.Server.WriteTimeout,
		IdleTimeout:    s.cfg.Server.IdleTimeout,
		MaxHeaderBytes: s.cfg.Server.MaxHeaderBytes,
	}

	tlsEnabled := s.cfg.Security.TLS.Enabled
	if tlsEnabled {
		tlsConfig, err := s.tlsConfig()
		if err != nil {
			return fmt.Errorf("failed to configure TLS: %w", err)
		}
		s.httpServer.TLSConfig = tlsConfig
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("server starting",
			"address", s.cfg.Server.ListenAddress,
			"tls", tlsEnabled,
			"auth", s.cfg.Security.Authentication.Enabled,
		)

		var err error
		if tlsEnabled {
			err = s.httpServer.ListenAndServeTLS(s.cfg.Security.TLS.CertFile, s.cfg.Security.TLS.KeyFile)
		} else {
			err = s.httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.log.Info("context cancelled, shutting down")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.log.Info("shutdown signal received", "signal", sig.String())
		return s.Shutdown(context.Background())
	case <-s.shutdownChan:
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Stop requests a graceful shutdown from another goroutine. Safe to call
// more than once.
func (s *Server) Stop() {
	s.shutdownOnce.Do(func() { close(s.shutdownChan) })
}

// Shutdown drains in-flight requests up to the configured shutdown
// timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	timeout := s.cfg.Server.ShutdownTimeout
	s.log.Info("draining connections", "timeout", timeout.String())

	shutdownCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Error("shutdown did not complete cleanly", "error", err)
			return fmt.Errorf("server shutdown: %w", err)
		}
	}
	s.log.Info("server stopped")
	return nil
}

// IsRunning reports whether Start is active.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Handler returns the fully assembled handler: API routes behind
// authentication and a per-request deadline, operational endpoints open,
// and the recovery, request ID, trace adoption, and logging layers
// outermost. Trace adoption runs before logging so request log lines
// carry the caller's trace ID.
func (s *Server) Handler() http.Handler {
	root := http.NewServeMux()

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /v1/cases/evaluate", s.handleEvaluate)
	apiMux.HandleFunc("POST /v1/cases/{id}/override", s.handleOverride)
	apiMux.HandleFunc("GET /v1/audit/entries", s.handleAuditEntries)
	apiMux.HandleFunc("GET /v1/audit/verify", s.handleAuditVerify)

	var apiHandler http.Handler = apiMux
	apiHandler = middleware.Timeout(s.cfg.Server.WriteTimeout)(apiHandler)
	apiHandler = middleware.APIKey(s.cfg.Security.Authentication, s.log)(apiHandler)
	root.Handle("/v1/", apiHandler)

	if s.health != nil && s.cfg.Telemetry.Health.Enabled {
		root.Handle(s.cfg.Telemetry.Health.LivenessPath, s.health.LivenessHandler())
		root.Handle(s.cfg.Telemetry.Health.ReadinessPath, s.health.ReadinessHandler())
	}
	if s.metrics != nil && s.cfg.Telemetry.Metrics.Enabled {
		root.Handle(s.cfg.Telemetry.Metrics.Path, s.metrics.Handler())
	}
	root.Handle("/version", health.VersionHandler(s.version.Version, s.version.Commit, s.version.BuildTime))

	var handler http.Handler = root
	handler = middleware.Logging(s.log)(handler)
	handler = tracing.TraceContext(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(s.log)(handler)
	return handler
}

// tlsConfig builds the TLS configuration from security settings.
func (s *Server) tlsConfig() (*tls.Config, error) {
	tlsCfg := s.cfg.Security.TLS
	if tlsCfg.CertFile == "" {
		return nil, errors.New("TLS cert file not specified")
	}
	if tlsCfg.KeyFile == "" {
		return nil, errors.New("TLS key file not specified")
	}
	if _, err := os.Stat(tlsCfg.CertFile); err != nil {
		return nil, fmt.Errorf("TLS cert file: %w", err)
	}
	if _, err := os.Stat(tlsCfg.KeyFile); err != nil {
		return nil, fmt.Errorf("TLS key file: %w", err)
	}

	minVersion := uint16(tls.VersionTLS13)
	switch tlsCfg.MinVersion {
	case "", "1.3":
	case "1.2":
		minVersion = tls.VersionTLS12
	default:
		return nil, fmt.Errorf("unsupported TLS min version %q", tlsCfg.MinVersion)
	}

	return &tls.Config{MinVersion: minVersion}, nil
}
