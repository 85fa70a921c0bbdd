package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/folivafy/folivafy/internal/app/config"
	"github.com/folivafy/folivafy/internal/app/handlers"
	"github.com/folivafy/folivafy/internal/app/middleware"
	"github.com/folivafy/folivafy/internal/domain/hooks"
	"github.com/folivafy/folivafy/internal/domain/hooks/stageddelete"
	"github.com/folivafy/folivafy/internal/domain/services"
	"github.com/folivafy/folivafy/internal/infrastructure/database"
	"github.com/folivafy/folivafy/internal/infrastructure/repositories/postgresql"
	"github.com/folivafy/folivafy/internal/infrastructure/userdata"
	"github.com/folivafy/folivafy/pkg/logger"
)

type Server struct {
	config *config.Config
	logger *logger.Logger
	router *gin.Engine
	server *http.Server
	db     *database.DB

	registry *hooks.Registry
	cron     *services.CronDriver
	userdata *userdata.Service

	backgroundCancel context.CancelFunc
}

// New creates a new server instance with the full service graph wired.
func New(cfg *config.Config, log *logger.Logger) (*Server, error) {
	if cfg.GetDatabaseURL() == "" {
		return nil, fmt.Errorf("no database configured")
	}
	db, err := database.New(cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	store := postgresql.NewStore(db)
	registry := hooks.NewRegistry()
	data := services.NewDataService(store)
	resolver := services.NewGrantsResolver(registry, data)
	cron := services.NewCronDriver(store, registry, data, log, cfg.Cron.Interval)
	pipeline := services.NewWritePipeline(store, registry, data, resolver, log, cron.Trigger)
	query := services.NewQueryEngine(store, resolver, log)
	maintenance := services.NewMaintenance(store, resolver, log)

	mailer := services.NewMailer(store, registry, log)
	if err := mailer.EnsureCollection(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to prepare mail collection: %w", err)
	}
	mailer.RegisterCronHook(nil)

	for _, d := range cfg.Deletion {
		stageddelete.Register(registry, d.Collection, d.Stage1Days, d.Stage2Days, log)
		log.Info("staged deletion enabled",
			"collection", d.Collection, "stage1_days", d.Stage1Days, "stage2_days", d.Stage2Days)
	}

	ud, err := userdata.New(cfg.Userdata, cfg.Redis.URL, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize userdata service: %w", err)
	}

	// Configure Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(cfg))
	router.Use(middleware.SpanID())
	router.Use(loggingMiddleware(log))

	server := &Server{
		config:   cfg,
		logger:   log,
		router:   router,
		db:       db,
		registry: registry,
		cron:     cron,
		userdata: ud,
	}

	server.setupRoutes(query, pipeline, maintenance)

	return server, nil
}

// Registry exposes the hook registry so embedding applications can attach
// their collection hooks before Start.
func (s *Server) Registry() *hooks.Registry {
	return s.registry
}

// Start launches the background workers and serves HTTP.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.backgroundCancel = cancel
	go s.cron.Run(ctx)
	go s.userdata.Run(ctx)

	s.server = &http.Server{
		Addr:         ":" + s.config.Server.Port,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	if s.backgroundCancel != nil {
		s.backgroundCancel()
	}
	if err := s.userdata.Close(); err != nil {
		s.logger.Error("Error closing userdata cache", "error", err)
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error("Error closing database connection", "error", err)
	}

	return s.server.Shutdown(ctx)
}

// setupRoutes configures all application routes
func (s *Server) setupRoutes(
	query *services.QueryEngine,
	pipeline *services.WritePipeline,
	maintenance *services.Maintenance,
) {
	s.router.GET("/health", s.healthCheck)

	api := s.router.Group("/api")
	api.Use(middleware.Auth(s.config.JWT.Secret, s.config.JWT.Issuer))
	{
		handlers.NewCollectionHandler(query).RegisterRoutes(api)
		handlers.NewDocumentHandler(query, pipeline).RegisterRoutes(api)
		handlers.NewEventHandler(pipeline).RegisterRoutes(api)
		handlers.NewMaintenanceHandler(maintenance).RegisterRoutes(api)
	}
}

// Health check handler
func (s *Server) healthCheck(c *gin.Context) {
	dbStatus := "healthy"
	if err := s.db.Ping(); err != nil {
		dbStatus = "unhealthy"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"database":    dbStatus,
		"timestamp":   time.Now().UTC(),
		"environment": s.config.Environment,
	})
}

// corsMiddleware configures CORS
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.SpanIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.SpanIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	return cors.New(corsConfig)
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
			"span_id", middleware.GetSpanID(c),
		)
	}
}
