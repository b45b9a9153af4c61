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

	"staydesk/api/routes"
	"staydesk/internal/bookings"
	"staydesk/internal/jobs"
	"staydesk/internal/notifications"
	"staydesk/internal/shared/config"
	"staydesk/internal/shared/database"
	"staydesk/internal/shared/middleware"
	"staydesk/pkg/cache"
	"staydesk/pkg/logger"
	"staydesk/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	appLogger := logger.GetDefault()

	// Smart environment loading
	if err := godotenv.Load(); err != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		appLogger.Error("Invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	gin.SetMode(cfg.GinMode)

	appLogger = logger.New()
	logger.SetDefault(appLogger)

	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("Failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Rate limiting and deduplication need Redis
	var (
		rateLimiter *ratelimit.RateLimiter
		dedupe      notifications.Deduplicator
	)
	if rdb := db.GetRedis(); rdb != nil {
		dedupe = cache.NewService(rdb)

		if cfg.RateLimit.Enabled {
			rateLimiter = ratelimit.NewRateLimiter(rdb, &ratelimit.Config{
				Enabled:            cfg.RateLimit.Enabled,
				WindowDuration:     cfg.RateLimit.WindowDuration,
				DefaultRequests:    cfg.RateLimit.DefaultRequests,
				PublicRequests:     cfg.RateLimit.PublicRequests,
				BookingRequests:    cfg.RateLimit.BookingRequests,
				TransitionRequests: cfg.RateLimit.TransitionRequests,
				RefundRequests:     cfg.RateLimit.RefundRequests,
				HealthRequests:     cfg.RateLimit.HealthRequests,
				WhitelistedIPs:     cfg.RateLimit.WhitelistedIPs,
			})
			appLogger.Info("Rate limiter initialized",
				slog.Duration("window", cfg.RateLimit.WindowDuration),
				slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
			)
		}
	} else {
		appLogger.Warn("Rate limiting and notification deduplication disabled: Redis unavailable")
	}

	// Notification pipeline
	var emitter bookings.EventEmitter = bookings.NopEmitter{}
	notificationCtx, notificationCancel := context.WithCancel(context.Background())
	defer notificationCancel()

	if cfg.Kafka.Enabled {
		notificationService, err := notifications.NewService(cfg, dedupe, appLogger)
		if err != nil {
			appLogger.Error("Failed to initialize notification service", slog.Any("error", err))
			appLogger.Info("Continuing without notifications - lifecycle events will be dropped")
		} else {
			emitter = notificationService.Emitter()
			if err := notificationService.Start(notificationCtx); err != nil {
				appLogger.Error("Failed to start notification consumers", slog.Any("error", err))
			}

			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := notificationService.Stop(ctx); err != nil {
					appLogger.Error("Error stopping notification service", slog.Any("error", err))
				}
			}()
		}
	}

	store := bookings.NewRepository(db.GetPostgreSQL())
	manager := bookings.NewManager(store, emitter, appLogger, bookings.ManagerConfig{
		TransitionTimeout: cfg.Lifecycle.TransitionTimeout,
		RefundPolicy: bookings.RefundPolicy{
			FreeCancellationWindow:        cfg.Lifecycle.FreeCancellationWindow,
			LateCancellationRefundPercent: cfg.Lifecycle.LateCancellationRefundPercent,
			PostCheckInWindow:             cfg.Lifecycle.PostCheckInWindow,
			PostCheckInRefundPercent:      cfg.Lifecycle.PostCheckInRefundPercent,
		},
	})

	// Background sweeps
	if cfg.Jobs.Enabled {
		jobProcessor := jobs.NewJobProcessor(manager, store, &jobs.JobConfig{
			NoShowInterval:   cfg.Jobs.NoShowInterval,
			NoShowGrace:      cfg.Jobs.NoShowGrace,
			CompleteInterval: cfg.Jobs.CompleteInterval,
			CompleteGrace:    cfg.Jobs.CompleteGrace,
			BatchSize:        cfg.Jobs.BatchSize,
		}, appLogger)
		jobProcessor.Start(notificationCtx)
		defer jobProcessor.Stop()
	}

	router := setupRouter(cfg, db, store, manager, rateLimiter, appLogger)

	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("api_base", cfg.GetAPIBasePath()),
			slog.String("version", Version),
			slog.String("commit", GitCommit),
			slog.String("built", BuildTime),
			slog.Bool("redis", db.GetRedis() != nil),
			slog.Bool("kafka", cfg.Kafka.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	appLogger.Info("Server exited gracefully")
}

func setupRouter(cfg *config.Config, db *database.DB, store bookings.Store, manager *bookings.Manager, rateLimiter *ratelimit.RateLimiter, appLogger *logger.Logger) *gin.Engine {
	engine := gin.New()

	engine.Use(middleware.RequestLogger(appLogger), gin.Recovery())

	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter, appLogger))
	}

	routes.NewRouter(cfg, db, store, manager, appLogger).SetupRoutes(engine)

	return engine
}
