package di

import (
	"go.uber.org/zap"

	"github.com/Awerito/ulatickets-api/internal/handler"
	"github.com/Awerito/ulatickets-api/internal/repository"
	"github.com/Awerito/ulatickets-api/internal/service"
	"github.com/Awerito/ulatickets-api/internal/worker"
	"github.com/Awerito/ulatickets-api/pkg/database"
	"github.com/Awerito/ulatickets-api/pkg/redis"
)

// Container holds all dependencies for the API
type Container struct {
	// Infrastructure
	DB     *database.PostgresDB
	Redis  *redis.Client
	Logger *zap.Logger

	// Repositories
	EventRepo       repository.EventRepository
	ReservationRepo repository.ReservationRepository
	PurchaseRepo    repository.PurchaseRepository

	// Services
	EventService       service.EventService
	ReservationService service.ReservationService
	CheckoutService    service.CheckoutService

	// Workers
	ExpiryReconciler *worker.ExpiryReconciler

	// Handlers
	HealthHandler      *handler.HealthHandler
	EventHandler       *handler.EventHandler
	ReservationHandler *handler.ReservationHandler
	CheckoutHandler    *handler.CheckoutHandler
	AdminHandler       *handler.AdminHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB                *database.PostgresDB
	Redis             *redis.Client
	Logger            *zap.Logger
	ReservationConfig *service.ReservationServiceConfig
	ReconcilerConfig  *worker.ExpiryReconcilerConfig
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Container{
		DB:     cfg.DB,
		Redis:  cfg.Redis,
		Logger: logger,
	}

	// Initialize repositories. The event repository is wrapped with a
	// Redis read-through cache when Redis is available.
	postgresEventRepo := repository.NewPostgresEventRepository(cfg.DB.Pool())
	if cfg.Redis != nil {
		c.EventRepo = repository.NewCachedEventRepository(postgresEventRepo, cfg.Redis)
	} else {
		c.EventRepo = postgresEventRepo
	}
	c.ReservationRepo = repository.NewPostgresReservationRepository(cfg.DB.Pool())
	c.PurchaseRepo = repository.NewPostgresPurchaseRepository(cfg.DB.Pool())

	// Initialize services
	c.EventService = service.NewEventService(c.EventRepo)
	c.ReservationService = service.NewReservationService(
		c.EventRepo,
		c.ReservationRepo,
		logger,
		cfg.ReservationConfig,
	)
	c.CheckoutService = service.NewCheckoutService(
		c.EventRepo,
		c.ReservationRepo,
		c.PurchaseRepo,
		logger,
	)

	// Initialize workers
	c.ExpiryReconciler = worker.NewExpiryReconciler(
		c.ReservationService,
		cfg.ReconcilerConfig,
		logger,
	)

	// Initialize handlers
	c.HealthHandler = handler.NewHealthHandler(c.DB, c.Redis)
	c.EventHandler = handler.NewEventHandler(c.EventService)
	c.ReservationHandler = handler.NewReservationHandler(c.ReservationService)
	c.CheckoutHandler = handler.NewCheckoutHandler(c.CheckoutService)
	c.AdminHandler = handler.NewAdminHandler(c.ExpiryReconciler)

	return c
}
