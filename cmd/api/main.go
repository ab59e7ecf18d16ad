package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Awerito/ulatickets-api/internal/di"
	"github.com/Awerito/ulatickets-api/internal/metrics"
	"github.com/Awerito/ulatickets-api/internal/service"
	"github.com/Awerito/ulatickets-api/internal/worker"
	"github.com/Awerito/ulatickets-api/migrations"
	"github.com/Awerito/ulatickets-api/pkg/config"
	"github.com/Awerito/ulatickets-api/pkg/database"
	"github.com/Awerito/ulatickets-api/pkg/logger"
	"github.com/Awerito/ulatickets-api/pkg/middleware"
	pkgredis "github.com/Awerito/ulatickets-api/pkg/redis"
	"github.com/Awerito/ulatickets-api/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLog, err := logger.Init(&logger.Config{
		Environment: cfg.App.Environment,
		Level:       logLevel(cfg),
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog.Info("starting ulatickets api",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment))

	ctx := context.Background()

	// Initialize tracing
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		appLog.Fatal("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()

	if err := metrics.Init(); err != nil {
		appLog.Fatal("failed to initialize metrics", zap.Error(err))
	}

	// Initialize database connection
	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	})
	if err != nil {
		appLog.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()
	appLog.Info("database connected")

	// Apply schema migrations
	if err := migrations.Apply(ctx, db.Pool()); err != nil {
		appLog.Fatal("migrations failed", zap.Error(err))
	}

	// Initialize Redis connection
	redisClient, err := pkgredis.NewClient(ctx, &pkgredis.Config{
		Host:          cfg.Redis.Host,
		Port:          cfg.Redis.Port,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		PoolSize:      cfg.Redis.PoolSize,
		MinIdleConns:  cfg.Redis.MinIdleConns,
		DialTimeout:   cfg.Redis.DialTimeout,
		ReadTimeout:   cfg.Redis.ReadTimeout,
		WriteTimeout:  cfg.Redis.WriteTimeout,
		MaxRetries:    3,
		RetryInterval: 100 * time.Millisecond,
	})
	if err != nil {
		// The cache is an optimization. The API works without it.
		appLog.Warn("redis connection failed, running without cache", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
		appLog.Info("redis connected")
	}

	// Build dependency injection container
	container := di.NewContainer(&di.ContainerConfig{
		DB:     db,
		Redis:  redisClient,
		Logger: appLog,
		ReservationConfig: &service.ReservationServiceConfig{
			HoldDuration:   cfg.Reservation.HoldDuration,
			SweepBatchSize: cfg.Reservation.SweepBatchSize,
		},
		ReconcilerConfig: &worker.ExpiryReconcilerConfig{
			SweepInterval: cfg.Reservation.SweepInterval,
		},
	})

	// Start the expiry reconciler
	reconcilerCtx, stopReconciler := context.WithCancel(ctx)
	defer stopReconciler()
	if err := container.ExpiryReconciler.Start(reconcilerCtx); err != nil {
		appLog.Fatal("failed to start expiry reconciler", zap.Error(err))
	}
	defer container.ExpiryReconciler.Stop()

	// Setup Gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.OTel.Enabled {
		router.Use(telemetry.TracingMiddleware(cfg.OTel.ServiceName))
	}

	// Health check endpoints
	router.GET("/health", container.HealthHandler.Health)
	router.GET("/ready", container.HealthHandler.Ready)

	// API routes
	api := router.Group("/api")
	{
		events := api.Group("/events")
		{
			events.GET("", container.EventHandler.ListEvents)
			events.POST("", container.EventHandler.CreateEvent)
			events.GET("/:id", container.EventHandler.GetEvent)
			events.PATCH("/:id", container.EventHandler.UpdateEvent)
			events.DELETE("/:id", container.EventHandler.DeleteEvent)
		}

		reservations := api.Group("/reservations")
		{
			reservations.GET("/:id", container.ReservationHandler.GetReservation)
			reservations.DELETE("/:id", container.ReservationHandler.CancelReservation)
		}

		// Write paths that move money or stock get idempotency protection
		// when Redis is available.
		createReservation := gin.HandlersChain{container.ReservationHandler.CreateReservation}
		checkout := gin.HandlersChain{container.CheckoutHandler.Checkout}
		if redisClient != nil {
			idempotency := middleware.IdempotencyMiddleware(
				middleware.DefaultIdempotencyConfig(redisClient.Client()))
			createReservation = gin.HandlersChain{idempotency, container.ReservationHandler.CreateReservation}
			checkout = gin.HandlersChain{idempotency, container.CheckoutHandler.Checkout}
		}
		api.POST("/reservations", createReservation...)
		api.POST("/checkout", checkout...)

		api.GET("/purchases/:id", container.CheckoutHandler.GetPurchase)

		admin := api.Group("/admin")
		{
			admin.POST("/sweep", container.AdminHandler.TriggerSweep)
			admin.GET("/sweep", container.AdminHandler.SweepStats)
		}
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		appLog.Info("api listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("shutting down")

	// Stop the reconciler before the server so an in-flight sweep finishes
	container.ExpiryReconciler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Fatal("server forced to shutdown", zap.Error(err))
	}

	appLog.Info("server exited gracefully")
}

func logLevel(cfg *config.Config) string {
	if cfg.App.Debug {
		return "debug"
	}
	return "info"
}
