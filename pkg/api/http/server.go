package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aescanero/crossplot/internal/application/pipeline"
	"github.com/aescanero/crossplot/pkg/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	server      *http.Server
	runner      *pipeline.Runner
	defaultMode domain.TriggerMode
	logger      *zap.Logger
}

// Config holds HTTP server configuration
type Config struct {
	Port        int
	Runner      *pipeline.Runner
	DefaultMode domain.TriggerMode
	// Gatherer backs /metrics; nil uses the default registry
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(cfg.Logger))
	router.Use(corsMiddleware())

	mode := cfg.DefaultMode
	if mode == "" {
		mode = domain.TriggerModeBatch
	}

	s := &Server{
		router:      router,
		runner:      cfg.Runner,
		defaultMode: mode,
		logger:      cfg.Logger,
	}

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s.setupRoutes(gatherer)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	return s
}

// setupRoutes configures API routes
func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	// Liveness
	s.router.GET("/healthz", s.handleHealth)

	// Metrics
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// Trigger
	s.router.POST("/", s.handleTrigger)
	s.router.GET("/triggers/:id", s.handleGetTrigger)
}

// SetupWebSocket adds the WebSocket stream handler to the server
func (s *Server) SetupWebSocket(handler interface {
	HandleTriggerStream(*gin.Context)
}) {
	s.router.GET("/ws", handler.HandleTriggerStream)
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}
