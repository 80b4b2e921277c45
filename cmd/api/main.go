package main

// @title AppGrove Analytics API
// @version 1.0
// @description Cohort and lifetime value analytics for the AppGrove marketplace.
// @termsOfService https://appgrove.dev/terms

// @contact.name API Support
// @contact.url https://appgrove.dev/support
// @contact.email support@appgrove.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/appgrove/appgrove/config"
	_ "github.com/appgrove/appgrove/docs" // Swagger docs (generated)
	"github.com/appgrove/appgrove/pkg/ai/agents"
	"github.com/appgrove/appgrove/pkg/ai/llm"
	"github.com/appgrove/appgrove/pkg/analytics"
	"github.com/appgrove/appgrove/pkg/api/handlers"
	"github.com/appgrove/appgrove/pkg/auth"
	"github.com/appgrove/appgrove/pkg/cache"
	"github.com/appgrove/appgrove/pkg/database"
	"github.com/appgrove/appgrove/pkg/export"
	"github.com/appgrove/appgrove/pkg/jobs"
	"github.com/appgrove/appgrove/pkg/logger"
	"github.com/appgrove/appgrove/pkg/metrics"
	custommiddleware "github.com/appgrove/appgrove/pkg/middleware"
	"github.com/appgrove/appgrove/pkg/models"
	"github.com/appgrove/appgrove/pkg/store"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Printf("🔧 Configuration loaded (environment: %s)", cfg.APIEnvironment)

	appLogger := logger.New(cfg.LogLevel)

	// Initialize Sentry for error tracking
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.APIEnvironment,
			TracesSampleRate: 1.0,
			AttachStacktrace: true,
		})
		if err != nil {
			log.Printf("⚠️  Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s)", cfg.APIEnvironment)
			defer sentry.Flush(2 * time.Second)
		}
	} else {
		log.Printf("ℹ️  Sentry disabled (no DSN configured)")
	}

	// Initialize database, with read replicas when configured
	var analyticsStore analytics.Store
	var dbPing func(context.Context) error
	var closeDB func() error

	var sslCfg *database.SSLConfig
	if cfg.DatabaseSSLMode {
		sslCfg = &database.SSLConfig{Mode: "require"}
	}

	if len(cfg.ReadReplicaURLs) > 0 {
		replicaCfg := database.DefaultReplicaConfig()
		replicaCfg.ReadReplicaURLs = cfg.ReadReplicaURLs
		if !cfg.ReplicaHealthCheck {
			replicaCfg.HealthCheckInterval = 0
		}

		db, err := database.NewClientWithReplicas(cfg.DatabaseURL, database.DefaultPoolConfig(), sslCfg, replicaCfg)
		if err != nil {
			log.Fatalf("❌ Failed to connect to database: %v", err)
		}
		analyticsStore = store.NewPostgresWithReplicas(db, appLogger)
		dbPing = func(ctx context.Context) error { return db.GetWriteDB().PingContext(ctx) }
		closeDB = db.Close
	} else {
		db, err := database.NewClientWithSSL(cfg.DatabaseURL, sslCfg)
		if err != nil {
			log.Fatalf("❌ Failed to connect to database: %v", err)
		}
		analyticsStore = store.NewPostgres(db.DB, appLogger)
		dbPing = db.Ping
		closeDB = db.Close
	}
	defer closeDB()

	// Initialize Redis cache
	redisClient, err := cache.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize Prometheus metrics
	prometheusMetrics := metrics.New()
	log.Printf("✅ Prometheus metrics initialized")

	// Initialize services
	analyticsService := analytics.NewService(analyticsStore, appLogger)
	exportService, err := export.NewService(export.Config{
		AWSAccessKeyID:     cfg.AWSAccessKeyID,
		AWSSecretAccessKey: cfg.AWSSecretAccessKey,
		AWSRegion:          cfg.AWSRegion,
		S3Bucket:           cfg.S3Bucket,
	}, appLogger)
	if err != nil {
		log.Fatalf("❌ Failed to initialize export service: %v", err)
	}
	if cfg.S3Bucket != "" {
		log.Printf("✅ Export archival enabled (S3: %s)", cfg.S3Bucket)
	} else {
		log.Printf("ℹ️  Export archival disabled (no S3 bucket configured)")
	}

	// Optional LLM narration
	var analyst handlers.Narrator
	switch cfg.LLMProvider {
	case "openai":
		client := llm.NewOpenAIClient(llm.Config{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
		}, log.Default())
		analyst = agents.NewAnalystAgent(client, log.Default())
		log.Printf("✅ Narrative generation enabled (provider: openai)")
	case "ollama":
		client := llm.NewOllamaClient(llm.OllamaConfig{
			BaseURL: cfg.OllamaBaseURL,
			Model:   cfg.OllamaModel,
		}, log.Default())
		analyst = agents.NewAnalystAgent(client, log.Default())
		log.Printf("✅ Narrative generation enabled (provider: ollama)")
	default:
		log.Printf("ℹ️  Narrative generation disabled (LLM_PROVIDER not set)")
	}

	// Initialize JWT blacklist
	tokenBlacklist := auth.NewTokenBlacklist(redisClient)

	// Initialize cron jobs
	snapshotJob := jobs.NewSnapshotJob(analyticsService, redisClient, prometheusMetrics, log.Default())
	cronManager := jobs.NewCronManager(snapshotJob, log.Default())
	if cfg.CronEnabled {
		if err := cronManager.SetupJobs(); err != nil {
			log.Fatalf("❌ Failed to setup cron jobs: %v", err)
		}
		cronManager.Start()
		log.Printf("✅ Cron jobs started successfully")
	} else {
		log.Printf("ℹ️  Cron jobs disabled (CRON_ENABLED=false)")
	}

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	// Rate limiter
	globalRateLimiter := custommiddleware.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)

	// Global middleware
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Printf("[%s] %s - Status: %d", c.Request().Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(echomw.Recover())

	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{
			Repanic: true,
		}))
	}

	e.Use(prometheusMetrics.Middleware())
	e.Use(echomw.CORSWithConfig(custommiddleware.CORSConfig()))
	e.Use(custommiddleware.SecurityHeaders(custommiddleware.DefaultSecurityHeadersConfig()))
	e.Use(echomw.Gzip())
	e.Use(globalRateLimiter.RateLimitMiddleware())

	// Initialize handlers
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService, redisClient, prometheusMetrics, appLogger)
	exportHandler := handlers.NewExportHandler(analyticsService, exportService, prometheusMetrics)
	aiHandler := handlers.NewAIHandler(analyticsService, analyst)
	jobsHandler := handlers.NewJobsHandler(snapshotJob, redisClient)

	// Public endpoints
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"name":        "AppGrove Analytics API",
			"version":     "1.0.0",
			"status":      "running",
			"environment": cfg.APIEnvironment,
			"timestamp":   time.Now().Unix(),
		})
	})

	e.GET("/health", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		services := map[string]string{"database": "up", "cache": "up"}
		status := http.StatusOK

		if err := dbPing(ctx); err != nil {
			services["database"] = "down"
			status = http.StatusServiceUnavailable
		}
		if _, err := redisClient.Redis.Ping(ctx).Result(); err != nil {
			services["cache"] = "down"
			status = http.StatusServiceUnavailable
		}

		health := "healthy"
		if status != http.StatusOK {
			health = "unhealthy"
		}

		return c.JSON(status, models.HealthResponse{
			Status:   health,
			Version:  "1.0.0",
			Services: services,
		})
	})

	// Prometheus metrics endpoint (public)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Swagger documentation (public)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	v1 := e.Group("/api/v1")

	v1.GET("/ping", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"message": "pong",
		})
	})

	// Analytics routes (require JWT with blacklist validation)
	analyticsRoutes := v1.Group("/analytics")
	analyticsRoutes.Use(custommiddleware.JWTMiddlewareWithBlacklist(cfg.JWTSecret, tokenBlacklist))
	{
		analyticsRoutes.GET("/cohorts", analyticsHandler.GetCohortAnalysis)
		analyticsRoutes.GET("/cohorts/export", exportHandler.ExportCohortAnalysis,
			custommiddleware.RequireRole("developer", "admin"))
		analyticsRoutes.GET("/cohorts/narrative", aiHandler.GetCohortNarrative,
			custommiddleware.RequireRole("developer", "admin"))
	}

	// Admin job triggers
	adminRoutes := v1.Group("/admin/jobs")
	adminRoutes.Use(custommiddleware.JWTMiddlewareWithBlacklist(cfg.JWTSecret, tokenBlacklist))
	adminRoutes.Use(custommiddleware.RequireRole("admin"))
	{
		adminRoutes.POST("/snapshot", jobsHandler.TriggerSnapshotHandler)
		adminRoutes.POST("/warm-cache", jobsHandler.TriggerWarmCacheHandler)
		adminRoutes.POST("/invalidate-cache", jobsHandler.InvalidateCacheHandler)
	}

	// Start server
	address := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	log.Printf("🚀 AppGrove Analytics API starting on %s", address)
	log.Printf("📝 Log level: %s, Log format: %s", cfg.LogLevel, cfg.LogFormat)
	log.Printf("🛡️  Rate limiting: %d req/min (burst: %d)", cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)
	log.Printf("⏰ Cron jobs: Daily 2AM (LTV snapshot), Hourly (report cache warm)")

	// Graceful shutdown
	go func() {
		if err := e.Start(address); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	cronManager.Stop()
	log.Println("✅ Cron jobs stopped")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server gracefully stopped")
}
