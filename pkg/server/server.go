// Package server provides the HTTP API for text-to-graph extraction.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	textrdf "github.com/soundprediction/go-textrdf"
	"github.com/soundprediction/go-textrdf/pkg/config"
	"github.com/soundprediction/go-textrdf/pkg/server/handlers"
	"github.com/soundprediction/go-textrdf/pkg/validation"
)

// Server wraps the gin engine and the extraction pipeline.
type Server struct {
	config    *config.Config
	extractor *textrdf.Extractor
	logger    *slog.Logger
	engine    *gin.Engine
	http      *http.Server
}

// New creates a new server for the given extractor.
func New(cfg *config.Config, extractor *textrdf.Extractor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:    cfg,
		extractor: extractor,
		logger:    logger,
	}
}

// Setup configures routes and middleware.
func (s *Server) Setup() {
	gin.SetMode(s.config.Server.Mode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(s.requestLogger())

	health := handlers.NewHealthHandler()
	engine.GET("/health", health.HealthCheck)
	engine.GET("/ready", health.ReadinessCheck)

	extract := handlers.NewExtractHandler(s.extractor, validation.NewDefault())
	v1 := engine.Group("/api/v1")
	{
		v1.POST("/extract", extract.Extract)
		v1.POST("/validate", extract.Validate)
	}

	s.engine = engine
	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Start runs the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	if s.http == nil {
		return fmt.Errorf("server not set up")
	}
	s.logger.Info("starting server", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Engine exposes the router, mainly for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
