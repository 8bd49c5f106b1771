package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anhnguyen888/nhatnguyen-ai-bidding-system/config"
	"github.com/anhnguyen888/nhatnguyen-ai-bidding-system/handler"
	"github.com/anhnguyen888/nhatnguyen-ai-bidding-system/middleware"
	"github.com/anhnguyen888/nhatnguyen-ai-bidding-system/pkg/logger"
	"github.com/anhnguyen888/nhatnguyen-ai-bidding-system/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	// Open record store
	store, err := service.OpenStore(cfg.Database.Path)
	if err != nil {
		slog.Error("failed to open record store", "error", err)
		os.Exit(1)
	}

	// Initialize services
	minioSvc, err := service.NewMinioService(&cfg.Minio)
	if err != nil {
		slog.Error("failed to initialize MINIO service", "error", err)
		os.Exit(1)
	}

	// Ensure bucket exists
	if err := minioSvc.EnsureBucket(context.Background()); err != nil {
		slog.Error("failed to ensure MINIO bucket", "error", err)
		os.Exit(1)
	}

	genaiSvc := service.NewGenAIService(&cfg.GenAI)
	ragSvc := service.NewRagStoreService(genaiSvc, cfg.GenAI.PollInterval, cfg.GenAI.UploadTimeout, cfg.GenAI.ListFilesPageSize)
	ingestSvc := service.NewIngestService(ragSvc, store)
	evalSvc := service.NewEvalService(genaiSvc, store, cfg.GenAI.QueryTimeout)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(cfg)
	bidPackageHandler := handler.NewBidPackageHandler(store, ragSvc)
	contractorHandler := handler.NewContractorHandler(store, ragSvc, minioSvc)
	evaluationHandler := handler.NewEvaluationHandler(store, ingestSvc, evalSvc, minioSvc, genaiSvc, cfg.Upload)
	criteriaHandler := handler.NewCriteriaSetHandler(store)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New() // Use New() instead of Default() to avoid default middleware

	// Add custom middleware
	router.Use(middleware.RequestID())                 // Request ID for tracing
	router.Use(middleware.Recovery())                  // Panic recovery
	router.Use(middleware.RequestLogger())             // Access logging
	router.Use(corsMiddleware())                       // CORS
	router.Use(middleware.RateLimit(100, time.Minute)) // Rate limiting: 100 requests per minute

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Public routes
	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
	}

	// Protected routes
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)

		protected.POST("/bid_packages", bidPackageHandler.Create)
		protected.GET("/bid_packages", bidPackageHandler.List)
		protected.PUT("/bid_packages/:id", bidPackageHandler.Update)
		protected.DELETE("/bid_packages/:id", bidPackageHandler.Delete)
		protected.GET("/bid_packages/:id/contractors", contractorHandler.List)

		protected.POST("/contractors", contractorHandler.Create)
		protected.PUT("/contractors/:id", contractorHandler.Update)
		protected.DELETE("/contractors/:id", contractorHandler.Delete)
		protected.GET("/contractors/:id/files", contractorHandler.ListFiles)

		protected.POST("/contractors/:id/files", evaluationHandler.ProcessFiles)
		protected.POST("/contractors/:id/evaluate", evaluationHandler.Evaluate)
		protected.GET("/contractors/:id/evaluations", evaluationHandler.History)
		protected.GET("/contractors/:id/evaluations/export", evaluationHandler.Export)
		protected.GET("/contractors/:id/suggested_criteria", evaluationHandler.SuggestCriteria)

		protected.POST("/criteria_sets", criteriaHandler.Create)
		protected.GET("/criteria_sets", criteriaHandler.List)
		protected.PUT("/criteria_sets/:id", criteriaHandler.Update)
		protected.DELETE("/criteria_sets/:id", criteriaHandler.Delete)
	}

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
