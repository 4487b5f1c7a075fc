// Package api wires the HTTP surface of the reconciliation service.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/nitindhyani1996/recon-backend/internal/api/handlers"
	"github.com/nitindhyani1996/recon-backend/internal/application/service"
	"github.com/nitindhyani1996/recon-backend/internal/infrastructure/config"
	"github.com/nitindhyani1996/recon-backend/internal/infrastructure/storage"
)

// Server is the HTTP API server.
type Server struct {
	config       config.ServerConfig
	engine       *gin.Engine
	httpServer   *http.Server
	logger       *slog.Logger
	repo         storage.Repository
	reconService *service.ReconService
}

// NewServer creates a new API server. If reconService is nil the run
// endpoints are not registered.
func NewServer(cfg config.ServerConfig, repo storage.Repository, reconService *service.ReconService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/health"},
	}))

	s := &Server{
		config:       cfg,
		engine:       engine,
		logger:       logger,
		repo:         repo,
		reconService: reconService,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	s.engine.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix, for load balancers)
	s.engine.GET("/health", handlers.Health)

	v1 := s.engine.Group("/api/v1")

	rules := handlers.NewRulesHandler(s.repo, s.logger)
	v1.POST("/matching-rules", rules.Create)
	v1.GET("/matching-rules", rules.List)
	v1.GET("/matching-rules/source-fields/:source", rules.SourceFields)
	v1.GET("/matching-rules/:id", rules.Get)
	v1.PUT("/matching-rules/:id", rules.Update)

	transactions := handlers.NewTransactionsHandler(s.repo, s.logger)
	v1.POST("/transactions/atm", transactions.UploadATM)
	v1.POST("/transactions/switch", transactions.UploadSwitch)
	v1.POST("/transactions/cbs", transactions.UploadCBS)

	summaries := handlers.NewSummariesHandler(s.repo, s.logger)
	v1.GET("/recon-summaries/latest", summaries.Latest)
	v1.GET("/recon-summaries/:reference", summaries.ByReference)
	v1.DELETE("/recon-summaries/:reference", summaries.Delete)

	matching := handlers.NewMatchingHandler(s.repo, s.logger)
	v1.GET("/matching/summary", matching.Summary)
	v1.GET("/matching/fully-matched", matching.FullyMatched)
	v1.GET("/matching/partially-matched", matching.PartiallyMatched)
	v1.GET("/matching/unmatched", matching.Unmatched)
	v1.GET("/matching/rrn/:rrn", matching.RRN)

	if s.reconService != nil {
		runs := handlers.NewRunsHandler(s.reconService)
		v1.POST("/matching-engine/runs", runs.Start)
		v1.GET("/matching-engine/runs", runs.List)
		v1.GET("/matching-engine/runs/:jobId", runs.Get)
		v1.DELETE("/matching-engine/runs/:jobId", runs.Cancel)
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the underlying engine for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}
