package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/structiq/soqtender/config"
	"github.com/structiq/soqtender/handler"
	"github.com/structiq/soqtender/middleware"
	"github.com/structiq/soqtender/pkg/logger"
	"github.com/structiq/soqtender/service"
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

	// Initialize attachment storage
	attachmentSvc, err := service.NewAttachmentService(&cfg.Minio)
	if err != nil {
		slog.Error("failed to initialize attachment service", "error", err)
		os.Exit(1)
	}

	// Ensure bucket exists
	if err := attachmentSvc.EnsureBucket(context.Background()); err != nil {
		slog.Error("failed to ensure attachment bucket", "error", err)
		os.Exit(1)
	}

	// Initialize the engine
	catalog := service.NewCatalogStore()
	tenders := service.NewTenderManager(catalog)
	bids := service.NewBidEngine(tenders)
	awards := service.NewAwardCoordinator(tenders, bids, catalog)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(cfg)
	catalogHandler := handler.NewCatalogHandler(catalog)
	tenderHandler := handler.NewTenderHandler(tenders, bids, awards)
	bidHandler := handler.NewBidHandler(bids)
	attachmentHandler := handler.NewAttachmentHandler(attachmentSvc)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New() // Use New() instead of Default() to avoid default middleware

	// Add custom middleware
	router.Use(middleware.RequestID())                 // Request ID for tracing
	router.Use(middleware.Recovery())                  // Panic recovery
	router.Use(middleware.RequestLogger())             // Access logging
	router.Use(corsMiddleware())                       // CORS
	router.Use(cacheMiddleware())                      // Cache control
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

		// attachments (both roles upload supporting documents)
		protected.POST("/attachments", attachmentHandler.Create)
		protected.GET("/attachments/*ref", attachmentHandler.Download)

		// tenders are visible to both roles, visibility-filtered
		protected.GET("/tenders", tenderHandler.ListTenders)
		protected.GET("/tenders/:id", tenderHandler.GetTender)

		// bidder routes
		bidder := protected.Group("/")
		bidder.Use(middleware.RequireRole(config.RoleBidder))
		{
			bidder.POST("/tenders/:id/bids", bidHandler.CreateBid)
			bidder.GET("/bids/my", bidHandler.MyBids)
			bidder.PATCH("/bids/:id/lines/:lineId", bidHandler.UpdateBidLine)
			bidder.POST("/bids/:id/submit", bidHandler.SubmitBid)
			bidder.POST("/bids/:id/withdraw", bidHandler.WithdrawBid)
			bidder.POST("/bids/:id/attachments", bidHandler.AttachToBid)
		}

		// both roles read bids (ownership enforced in the handler)
		protected.GET("/bids/:id", bidHandler.GetBid)

		// owner routes
		owner := protected.Group("/")
		owner.Use(middleware.RequireRole(config.RoleOwner))
		{
			owner.POST("/categories", catalogHandler.CreateCategory)
			owner.GET("/categories", catalogHandler.ListCategories)
			owner.GET("/categories/:id", catalogHandler.GetCategory)
			owner.POST("/categories/:id/jobs", catalogHandler.CreateJob)
			owner.GET("/jobs/:id", catalogHandler.GetJob)
			owner.POST("/jobs/:id/materials", catalogHandler.AddMaterial)
			owner.POST("/jobs/:id/labor", catalogHandler.AddLabor)
			owner.PATCH("/jobs/:id/lines/:lineId", catalogHandler.UpdateLine)
			owner.DELETE("/jobs/:id/lines/:lineId", catalogHandler.DeleteLine)
			owner.POST("/jobs/:id/lines/:lineId/attachments", catalogHandler.AttachToLine)
			owner.PATCH("/jobs/:id/status", catalogHandler.SetJobStatus)
			owner.GET("/reports/costs", catalogHandler.CostReport)

			owner.POST("/tenders", tenderHandler.CreateTender)
			owner.POST("/tenders/:id/jobs", tenderHandler.AddJobs)
			owner.POST("/tenders/:id/close", tenderHandler.CloseTender)
			owner.GET("/tenders/:id/bids", tenderHandler.ListBids)
			owner.POST("/tenders/:id/award", tenderHandler.Award)
			owner.GET("/tenders/:id/award", tenderHandler.GetAward)
			owner.POST("/tenders/:id/actuals", tenderHandler.ApplyActuals)
		}
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
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// cacheMiddleware disables caching on API responses
func cacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
		}

		c.Next()
	}
}
