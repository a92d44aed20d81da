// Package server wires every component together: storage, session
// registry, resource proxies, service providers, and the HTTP/WS surface.
package server

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/TenantOS/backend/internal/api/http"
	"github.com/GriffinCanCode/TenantOS/backend/internal/api/middleware"
	"github.com/GriffinCanCode/TenantOS/backend/internal/api/ws"
	"github.com/GriffinCanCode/TenantOS/backend/internal/command"
	"github.com/GriffinCanCode/TenantOS/backend/internal/events"
	"github.com/GriffinCanCode/TenantOS/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/TenantOS/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/TenantOS/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/TenantOS/backend/internal/providers/filesystem"
	"github.com/GriffinCanCode/TenantOS/backend/internal/providers/state"
	"github.com/GriffinCanCode/TenantOS/backend/internal/providers/terminal"
	"github.com/GriffinCanCode/TenantOS/backend/internal/service"
	"github.com/GriffinCanCode/TenantOS/backend/internal/storage"
	"github.com/GriffinCanCode/TenantOS/backend/internal/tenant"
)

// Version is the reported service version.
const Version = "1.0.0"

// Server wraps the HTTP server and its dependencies.
type Server struct {
	router    *gin.Engine
	sessions  *tenant.Registry
	services  *service.Registry
	terminals *terminal.Factory
	logger    *logging.Logger
	config    *config.Config
	metrics   *monitoring.Metrics
}

// NewServer creates a fully wired server instance.
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stdout"},
	})
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	logger.Info("Initializing TenantOS backend",
		zap.String("port", cfg.Server.Port),
		zap.String("storage_root", cfg.Storage.Root),
	)

	metrics := monitoring.NewMetrics()

	disk, err := storage.NewDisk(cfg.Storage.Root)
	if err != nil {
		return nil, fmt.Errorf("initialize storage: %w", err)
	}

	sessions := tenant.NewRegistry()
	eventProxy := events.NewProxy(logger)
	commands := command.NewProxy(command.NewTable())
	fsProxy := filesystem.NewProxy(disk, sessions, eventProxy)
	stateStore := state.NewStore(disk, sessions)
	terminals := terminal.NewFactory(sessions, disk).WithMetrics(metrics)

	services := service.NewRegistry().WithMetrics(metrics)
	for _, p := range []service.Provider{
		filesystem.NewProvider(fsProxy),
		state.NewProvider(stateStore),
		terminal.NewProvider(terminals),
	} {
		if err := services.Register(p); err != nil {
			return nil, fmt.Errorf("register provider: %w", err)
		}
	}
	logger.Info("Service providers registered", zap.Int("count", len(services.List())))

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
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

	handlers := apihttp.NewHandlers(sessions, terminals, services, Version)
	wsHandler := ws.NewHandler(sessions, commands, eventProxy, services, metrics, logger)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/services", handlers.ListServices)
	router.GET("/sessions", handlers.ListSessions)
	router.DELETE("/sessions/:uid", handlers.DestroySession)
	router.GET("/stream", wsHandler.HandleConnection)
	router.GET("/metrics", monitoring.Handler(metrics))

	logger.Info("Server initialized successfully")

	return &Server{
		router:    router,
		sessions:  sessions,
		services:  services,
		terminals: terminals,
		logger:    logger,
		config:    cfg,
		metrics:   metrics,
	}, nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() *gin.Engine {
	return s.router
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	addr := s.config.Addr()
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close shuts the server down, disposing every live terminal.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")
	for _, sess := range s.sessions.List() {
		s.terminals.DisposeAll(sess.UserID)
	}
	_ = s.logger.Sync()
	return nil
}
