package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/Kyazs/BI-Record-Tracking/docs" // Swagger docs
	"github.com/Kyazs/BI-Record-Tracking/internal/cache"
	"github.com/Kyazs/BI-Record-Tracking/internal/config"
	"github.com/Kyazs/BI-Record-Tracking/internal/database"
	"github.com/Kyazs/BI-Record-Tracking/internal/handlers"
	"github.com/Kyazs/BI-Record-Tracking/internal/jobs"
	"github.com/Kyazs/BI-Record-Tracking/internal/middleware"
	"github.com/Kyazs/BI-Record-Tracking/internal/ratelimit"
	"github.com/Kyazs/BI-Record-Tracking/internal/repository"
	"github.com/Kyazs/BI-Record-Tracking/internal/services"
	"github.com/Kyazs/BI-Record-Tracking/internal/storage"
	"github.com/Kyazs/BI-Record-Tracking/pkg/logger"
)

// @title BI Record Tracking API
// @version 1.0
// @description REST API for background investigation record tracking

// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Setup(cfg.Environment)

	// Initialize Sentry when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	if err := database.Migrate(db); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("Database schema up to date")

	// Initialize storage
	store, err := storage.NewLocalStorage(cfg.StoragePath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	logger.Info("Initialized local storage")

	// Rate limiting and status cache use Redis when configured,
	// otherwise fall back to in-process implementations
	limiter, statusCache := setupRedis(cfg)

	// Initialize repositories
	repos := repository.NewRepositories(db)

	// Initialize background worker
	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	// Initialize services
	svcs := services.NewServices(repos, worker, store, limiter, statusCache, cfg)

	// Schedule recurring jobs
	scheduleJobs(worker, svcs)

	// Initialize handlers
	h := handlers.NewHandlers(svcs, cfg)

	// Setup router
	router := setupRouter(h, cfg)

	// Create HTTP server. WriteTimeout stays at zero so the change feed
	// can hold connections open.
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	worker.Shutdown()
	logger.Info("Background worker stopped")

	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

func setupRedis(cfg *config.Config) (ratelimit.Limiter, cache.Cache) {
	if cfg.RedisURL == "" {
		logger.Info("Redis not configured, using in-process rate limiter and cache")
		return ratelimit.NewMemoryLimiter(), cache.NewMemoryCache()
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warn("Invalid REDIS_URL, using in-process rate limiter and cache", "error", err)
		return ratelimit.NewMemoryLimiter(), cache.NewMemoryCache()
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unreachable, using in-process rate limiter and cache", "error", err)
		return ratelimit.NewMemoryLimiter(), cache.NewMemoryCache()
	}

	logger.Info("Connected to Redis")
	return ratelimit.NewRedisLimiter(client), cache.NewRedisCache(client)
}

func setupRouter(h *handlers.Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()

	// Global middleware
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/applicants/stream"})))

	// Uploaded certificates are served from local storage
	router.Static(cfg.StorageBaseURL, cfg.StoragePath)

	// Redirect root to swagger
	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check (public)
		v1.GET("/health", h.Health.Index)

		// Authentication (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
			auth.POST("/logout", h.Auth.Logout)
		}

		// Protected routes (requires authentication)
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTSecret))
		{
			protected.GET("/dashboard", h.Dashboard.Index)

			// Applicant records
			applicants := protected.Group("/applicants")
			{
				applicants.GET("", h.Applicant.Index)
				applicants.GET("/stream", h.Applicant.Stream)
				applicants.POST("", h.Applicant.Create)
				applicants.GET("/:id", h.Applicant.Show)
				applicants.PATCH("/:id", h.Applicant.Update)
				applicants.PUT("/:id", h.Applicant.Update)
				applicants.POST("/:id", h.Applicant.Update)
			}

			// Audit trail
			protected.GET("/logs", h.Audit.Index)

			// Admin-only routes
			admin := protected.Group("")
			admin.Use(middleware.RequireAdmin())
			{
				// Applicant removal and downloads
				admin.DELETE("/applicants/:id", h.Applicant.Delete)
				admin.GET("/applicants/export", h.Applicant.Export)
				admin.GET("/applicants/:id/record_pdf", h.Applicant.RecordPDF)
				admin.GET("/applicants/:id/certificate", h.Applicant.Certificate)

				// Backups
				admin.POST("/backup", h.Backup.Trigger)
				admin.GET("/backup/status", h.Backup.Status)

				// User management
				admin.GET("/users", h.User.Index)
				admin.POST("/users", h.User.Create)
				admin.GET("/users/:id", h.User.Show)
				admin.PATCH("/users/:id", h.User.Update)
				admin.PUT("/users/:id", h.User.Update)
				admin.DELETE("/users/:id", h.User.Delete)
			}
		}
	}

	return router
}

func scheduleJobs(worker *jobs.Worker, svcs *services.Services) {
	// Nightly backup of the applicant register
	worker.ScheduleEvery(24*time.Hour, func(ctx context.Context) error {
		logger.Info("[Job] Running scheduled backup...")
		return svcs.Backup.Run(ctx)
	})

	logger.Info("Scheduled recurring jobs")
}
