package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"kurp-hq/kurp/pkg/backend"
	"kurp-hq/kurp/pkg/cache"
	"kurp-hq/kurp/pkg/config"
	"kurp-hq/kurp/pkg/gate"
	"kurp-hq/kurp/pkg/proxy"
	"kurp-hq/kurp/pkg/proxy/handlers"
	"kurp-hq/kurp/pkg/proxy/middleware"
	"kurp-hq/kurp/pkg/telemetry/health"
	"kurp-hq/kurp/pkg/telemetry/metrics"
	"kurp-hq/kurp/pkg/telemetry/tracing"
	"kurp-hq/kurp/pkg/transcode"
	"kurp-hq/kurp/pkg/upscaler"
)

// Route patterns intercepted by the proxy. Everything else is relayed.
const (
	RouteKomgaPage      = "GET /api/v1/books/{bookId}/pages/{page}"
	RouteKavitaImage    = "GET /api/reader/image"
	RouteHub            = "GET /hubs/messages"
	RouteKomgaSeriesTag = "PATCH /api/v1/series/{seriesId}/metadata"
	RouteKomgaBookTag   = "PATCH /api/v1/books/{bookId}/metadata"
	RouteKavitaSeries   = "POST /api/series/metadata"
	RouteConfigGet      = "GET /kurp/config"
	RouteConfigPost     = "POST /kurp/config"

	// ControlPrefix is where health and version endpoints are mounted.
	ControlPrefix = "/kurp"
)

// Deps are the collaborators that outlive a single server generation.
type Deps struct {
	Store      *config.Store
	Supervisor *upscaler.Supervisor
	History    *cache.History
	Tags       *cache.Tags

	// Metrics is nil when metrics are disabled.
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer
	Logger  *slog.Logger
	Version health.VersionInfo
}

// Server is one generation of the proxy: a listener and a route table built
// from a single immutable configuration. A configuration reload shuts the
// generation down and starts a new one.
type Server struct {
	config     *config.Config
	deps       Deps
	logger     *slog.Logger
	httpServer *http.Server
	transport  *http.Transport
	websocket  *handlers.WebSocketHandler
	gate       *gate.Gate
	handler    http.Handler

	errCh        chan error
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
	listener     net.Listener
}

// New builds a server generation for cfg. It does not bind the port; call
// Start or Serve for that.
func New(cfg *config.Config, deps Deps) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if deps.Store == nil {
		return nil, errors.New("configuration store is required")
	}
	if cfg.Upscale && deps.Supervisor == nil {
		return nil, errors.New("upscaler supervisor is required when upscaling is enabled")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: cfg,
		deps:   deps,
		logger: logger.With("component", "server"),
		errCh:  make(chan error, 1),
	}

	s.transport = proxy.NewTransport(proxy.TransportConfig{})
	forwarder, err := proxy.NewForwarder(cfg.UpstreamURL, s.transport, logger)
	if err != nil {
		return nil, err
	}

	source, err := backend.New(cfg.Backend, cfg.UpstreamURL,
		backend.NewHTTPClient(s.transport, cfg.Server.UpstreamTimeout), logger, deps.Tracer)
	if err != nil {
		return nil, err
	}
	s.gate = gate.New(cfg.UpscaleTag, source, deps.Tags, deps.History, logger, deps.Tracer)

	s.handler = s.setupRoutes(forwarder)

	s.httpServer = &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Port),
		Handler:        s.handler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
	// Hijacked WebSocket connections are invisible to http.Server.
	s.httpServer.RegisterOnShutdown(s.websocket.Shutdown)

	return s, nil
}

// setupRoutes builds the route table and wraps it in the middleware chain.
func (s *Server) setupRoutes(forwarder *proxy.Forwarder) http.Handler {
	cfg := s.config
	passthrough := handlers.NewPassthroughHandler(forwarder)
	mux := http.NewServeMux()

	if cfg.Upscale {
		pipeline := transcode.NewPipeline(s.deps.Supervisor, transcode.OptionsFromConfig(cfg),
			s.logger, s.deps.Metrics, s.deps.Tracer)
		mux.Handle(RouteKomgaPage,
			handlers.NewUpscaleHandler(forwarder, pipeline, s.gate, s.deps.History, handlers.KomgaBookID))
		mux.Handle(RouteKavitaImage,
			handlers.NewUpscaleHandler(forwarder, pipeline, s.gate, s.deps.History, handlers.KavitaChapterID))
	}

	s.websocket = handlers.NewWebSocketHandler(forwarder, passthrough, s.deps.Metrics)
	mux.Handle(RouteHub, s.websocket)

	if s.gate.Enabled() {
		metadata := handlers.NewMetadataHandler(forwarder, s.gate)
		switch cfg.Backend {
		case config.BackendKavita:
			mux.Handle(RouteKavitaSeries, metadata)
		default:
			mux.Handle(RouteKomgaSeriesTag, metadata)
			mux.Handle(RouteKomgaBookTag, metadata)
		}
	}

	if cfg.AllowConfigUpdates {
		configHandler := handlers.NewConfigHandler(s.deps.Store)
		mux.HandleFunc(RouteConfigGet, configHandler.Get)
		mux.HandleFunc(RouteConfigPost, configHandler.Update)
	}

	checker := health.New(health.DefaultCheckTimeout)
	if cfg.Upscale {
		checker.RegisterCheck("upscaler", s.deps.Supervisor.Ping)
	}
	health.Register(mux, ControlPrefix, checker, s.deps.Version)

	if cfg.Metrics.Enabled && s.deps.Metrics != nil {
		mux.Handle("GET "+cfg.Metrics.Path, s.deps.Metrics.Handler())
	}

	mux.Handle("/", passthrough)

	return middleware.Chain(
		middleware.CaptureRoute(mux),
		middleware.RecoveryMiddleware,
		middleware.RequestIDMiddleware,
		middleware.LoggingMiddleware,
		middleware.MetricsMiddleware(s.deps.Metrics),
		tracing.HTTPMiddleware(s.deps.Tracer),
	)
}

// Start binds the configured port and serves in the background. A bind
// failure is returned directly; later failures arrive on Err.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.Serve(ln)
	return nil
}

// Serve accepts connections on ln in the background.
func (s *Server) Serve(ln net.Listener) {
	s.mu.Lock()
	s.isRunning = true
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("listening",
		"address", ln.Addr().String(),
		"upstream", s.config.UpstreamURL,
		"backend", s.config.Backend,
		"upscale", s.config.Upscale,
	)

	go func() {
		err := s.httpServer.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.errCh <- err
		close(s.errCh)
	}()
}

// Err receives the result of Serve once the server stops: nil after a
// shutdown, the accept error otherwise.
func (s *Server) Err() <-chan error {
	return s.errCh
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown drains in-flight requests for up to the configured shutdown
// timeout. It is used when the process is asked to exit.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.shutdown(ctx, s.config.Server.ShutdownTimeout, "graceful")
}

// ForceShutdown gives in-flight requests a short grace period and then
// closes every connection. It is used before a reload so that the port is
// free for the next generation.
func (s *Server) ForceShutdown(ctx context.Context) error {
	return s.shutdown(ctx, s.config.Server.ForceShutdownTimeout, "forced")
}

func (s *Server) shutdown(ctx context.Context, timeout time.Duration, mode string) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.logger.Info("shutting down", "mode", mode, "timeout", timeout)

		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		if err = s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Warn("drain did not complete, closing connections", "error", err)
			if cerr := s.httpServer.Close(); cerr != nil {
				err = errors.Join(err, cerr)
			}
			if mode == "forced" {
				err = nil
			}
		}
		s.transport.CloseIdleConnections()

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		if err != nil {
			err = fmt.Errorf("server shutdown failed: %w", err)
			return
		}
		s.logger.Info("server stopped")
	})
	return err
}

// IsRunning returns whether the server is accepting connections.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the fully wrapped route table. Tests use it with
// httptest.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Gate returns the tag gate of this generation.
func (s *Server) Gate() *gate.Gate {
	return s.gate
}
