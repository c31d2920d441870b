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

	"courtly/api/routes"
	"courtly/internal/bookings"
	"courtly/internal/notifications"
	"courtly/internal/payments"
	"courtly/internal/shared/config"
	"courtly/internal/shared/database"
	"courtly/internal/shared/middleware"
	"courtly/internal/waitlist"
	"courtly/pkg/cache"
	"courtly/pkg/logger"
	"courtly/pkg/ratelimit"

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

	// Load config
	cfg := config.Load()

	// Set Gin mode (debug/release)
	gin.SetMode(cfg.GinMode)

	// Initialize DB (Postgres + Redis, migrations + constraints)
	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("failed to connect", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize the shared cache client used for club settings
	if err := cache.InitWithRedisConfig(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Addr:     cfg.Redis.Addr,
	}); err != nil {
		appLogger.Error("Failed to initialize cache client", slog.Any("error", err))
		appLogger.Info("Continuing without settings cache")
	} else {
		defer cache.Close()
	}

	// Initialize Rate Limiter
	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiterConfig := &ratelimit.Config{
			Enabled:         cfg.RateLimit.Enabled,
			WindowDuration:  cfg.RateLimit.WindowDuration,
			DefaultRequests: cfg.RateLimit.DefaultRequests,
			PublicRequests:  cfg.RateLimit.PublicRequests,
			BookingRequests: cfg.RateLimit.BookingRequests,
			PaymentRequests: cfg.RateLimit.PaymentRequests,
			StaffRequests:   cfg.RateLimit.StaffRequests,
			HealthRequests:  cfg.RateLimit.HealthRequests,
			WhitelistedIPs:  cfg.RateLimit.WhitelistedIPs,
		}

		rateLimiter = ratelimit.NewRateLimiter(db.GetRedisClient(), rateLimiterConfig)
		appLogger.Info("Rate limiter initialized",
			slog.Bool("enabled", cfg.RateLimit.Enabled),
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	// Initialize the outbound event dispatcher. Kafka failures downgrade to a
	// no-op dispatcher: the engine keeps booking, only event fan-out stops.
	var dispatcher notifications.Dispatcher = notifications.NopDispatcher{}
	if cfg.Kafka.Enabled {
		kafkaDispatcher, err := notifications.NewKafkaDispatcher(&notifications.KafkaProducerConfig{
			Brokers:          cfg.Kafka.Brokers,
			RetryMax:         cfg.Kafka.ProducerRetryMax,
			Timeout:          10 * time.Second,
			RequiredAcks:     notifications.DefaultKafkaProducerConfig().RequiredAcks,
			Compression:      notifications.DefaultKafkaProducerConfig().Compression,
			IdempotentWrites: true,
		})
		if err != nil {
			appLogger.Error("Failed to initialize Kafka dispatcher", slog.Any("error", err))
			appLogger.Info("Continuing with no-op event dispatcher")
		} else {
			dispatcher = kafkaDispatcher
			defer dispatcher.Close()
			appLogger.Info("Kafka event dispatcher initialized",
				slog.Any("brokers", cfg.Kafka.Brokers))
		}
	}

	// Build services and routes
	appRouter := routes.NewRouter(cfg, db, dispatcher, payments.NopGateway{})
	appRouter.SetupServices()
	engine := setupEngine(cfg, appRouter, rateLimiter)

	jobCtx, jobCancel := context.WithCancel(context.Background())
	defer jobCancel()

	// Booking lifecycle sweeps
	bookingJobs := bookings.NewJobProcessor(appRouter.BookingService(), &bookings.JobConfig{
		AutoCancelInterval: cfg.Scheduler.AutoCancelInterval,
		CompletionInterval: cfg.Scheduler.CompletionInterval,
		ReminderInterval:   cfg.Scheduler.ReminderInterval,
	})
	bookingJobs.Start(jobCtx)
	defer bookingJobs.Stop()

	// Waitlist grace-period sweep
	waitlistJobs := waitlist.NewJobProcessor(appRouter.WaitlistService(), nil)
	waitlistJobs.Start(jobCtx)
	defer waitlistJobs.Stop()

	// Gateway event consumer: card processor confirmations arrive async
	if cfg.Kafka.Enabled {
		consumer, err := payments.NewGatewayConsumer(&payments.ConsumerConfig{
			Brokers:          cfg.Kafka.Brokers,
			GroupID:          cfg.Kafka.ConsumerGroupID,
			Topic:            cfg.Kafka.GatewayTopic,
			SessionTimeoutMs: 30000,
			HeartbeatMs:      3000,
			OffsetOldest:     true,
		}, appRouter.PaymentService())
		if err != nil {
			appLogger.Error("Failed to initialize gateway consumer", slog.Any("error", err))
			appLogger.Info("Continuing without gateway consumer - card settlements will not be processed")
		} else {
			consumer.Start(jobCtx)
			defer consumer.Stop()
			appLogger.Info("Gateway event consumer started",
				slog.String("topic", cfg.Kafka.GatewayTopic),
				slog.String("group", cfg.Kafka.ConsumerGroupID))
		}
	}

	// HTTP server
	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        engine,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		appLogger.Info("🚀 Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("api_status", fmt.Sprintf("http://localhost:%s%s/status", cfg.Port, cfg.GetAPIBasePath())),
			slog.String("version", cfg.APIVersion),
			slog.Bool("rate_limiting", cfg.RateLimit.Enabled),
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

func setupEngine(cfg *config.Config, appRouter *routes.Router, rateLimiter *ratelimit.RateLimiter) *gin.Engine {
	engine := gin.New()
	appLogger := logger.GetDefault()

	// Built-in middleware: request ids, request logging, panic recovery
	engine.Use(middleware.RequestID(), RequestLoggerMiddleware(appLogger), gin.Recovery())

	// CORS configuration
	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true // allow every origin dynamically
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-RateLimit-*"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Global rate limiting middleware (applied to all routes)
	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter))
		appLogger.Info("Rate limiting middleware applied to all routes")
	}

	appRouter.SetupRoutes(engine)

	return engine
}

func RequestLoggerMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		l.LogHTTPRequest(c, duration)
	}
}
