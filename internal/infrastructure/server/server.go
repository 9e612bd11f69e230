package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apihttp "github.com/GriffinCanCode/tabkeeper/internal/api/http"
	"github.com/GriffinCanCode/tabkeeper/internal/api/middleware"
	"github.com/GriffinCanCode/tabkeeper/internal/api/ws"
	"github.com/GriffinCanCode/tabkeeper/internal/domain/session"
	"github.com/GriffinCanCode/tabkeeper/internal/domain/tabs"
	"github.com/GriffinCanCode/tabkeeper/internal/infrastructure/config"
	"github.com/GriffinCanCode/tabkeeper/internal/infrastructure/logging"
	"github.com/GriffinCanCode/tabkeeper/internal/infrastructure/monitoring"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	manager    *tabs.Manager
	store      session.Store
	hub        *ws.Hub
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics
	registry   *prometheus.Registry

	// restored is set once Start has loaded a persisted window.
	restored bool
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.Info("Initializing tabkeeper",
		zap.String("addr", cfg.Address()),
		zap.String("backend", cfg.Store.Backend),
		zap.String("store", cfg.StorePath()),
	)

	// Initialize metrics first (needed by other components)
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(registry)

	compression, err := session.ParseCompression(cfg.Store.Compression)
	if err != nil {
		return nil, err
	}
	store, err := session.Open(cfg.Store.Backend, cfg.StorePath(), session.Options{
		Logger:           logger.Logger,
		Compression:      compression,
		FetchConcurrency: cfg.Store.FetchConcurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	instrumented := monitoring.InstrumentStore(store, metrics)

	var windowID uuid.UUID
	if cfg.Registry.WindowID != "" {
		windowID, err = uuid.Parse(cfg.Registry.WindowID)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("invalid registry.window_id: %w", err)
		}
	}

	manager := tabs.NewManager(instrumented, tabs.Options{
		WindowID:      windowID,
		PreserveDelay: cfg.Registry.PreserveDelay,
		AutoPreserve:  cfg.Registry.AutoPreserve,
		Logger:        logger.Logger,
	})
	hub := ws.NewHub(ws.Options{Logger: logger.Logger, Metrics: metrics})
	manager.AddObserver(metrics)
	manager.AddObserver(hub)

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID(logger.Logger))
	router.Use(monitoring.Middleware(metrics))
	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.Server.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.Server.CORSOrigins
	}
	router.Use(middleware.CORS(corsCfg))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	// Register routes
	apihttp.NewHandlers(manager, instrumented, metrics, logger.Logger).Register(router)
	router.GET("/ws", hub.HandleConnection)
	registerLogLevel(router, logger)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	logger.Info("Server initialized successfully", zap.Stringer("window_id", manager.WindowID()))

	return &Server{
		router: router,
		httpServer: &http.Server{
			Addr:    cfg.Address(),
			Handler: router,
		},
		manager:  manager,
		store:    instrumented,
		hub:      hub,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
		registry: registry,
	}, nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Manager returns the tab registry served by s
func (s *Server) Manager() *tabs.Manager {
	return s.manager
}

// Start restores persisted tabs when configured to. A failed restore is
// logged and the server starts with an empty window.
func (s *Server) Start(ctx context.Context) error {
	if !s.config.Registry.RestoreOnStart {
		return nil
	}
	if err := s.manager.RestoreTabs(ctx, false).Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return err
		}
		s.logger.Warn("Failed to restore tabs, starting empty", zap.Error(err))
		return nil
	}
	s.restored = true
	return nil
}

// Run starts the server and blocks until ctx is canceled, then shuts down
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.logger.Info("Starting HTTP server", zap.String("addr", listener.Addr().String()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.Server.ShutdownTimeout)
		defer cancel()
		return s.Close(shutdownCtx)
	})
	return g.Wait()
}

// Close gracefully shuts down the server and writes the final snapshot. A
// window that was never restored and holds no tabs is not saved, so it cannot
// demote the persisted primary window.
func (s *Server) Close(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	var errs []error
	s.hub.Close()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shut down http server: %w", err))
	}

	if !s.restored && s.manager.Count() == 0 {
		s.logger.Info("Skipping shutdown save of empty unrestored window",
			zap.Stringer("window_id", s.manager.WindowID()))
	} else if err := s.manager.PreserveTabs().Wait(ctx); err != nil {
		s.logger.Error("Failed to preserve tabs on shutdown", zap.Error(err))
		errs = append(errs, err)
	}
	if err := s.manager.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error("Failed to close store", zap.Error(err))
		errs = append(errs, fmt.Errorf("failed to close store: %w", err))
	}

	// Sync logger before exit
	s.logger.Sync()

	return errors.Join(errs...)
}
