// Package app assembles the storefront server from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gemstore/internal/config"
	"gemstore/internal/handlers"
	"gemstore/internal/metrics"
	"gemstore/internal/middleware"
	"gemstore/internal/repositories"
	"gemstore/internal/services"
	"gemstore/pkg/rabbitmq"
	"gemstore/pkg/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App is a fully wired server plus the resources it must release.
type App struct {
	Fiber *fiber.App
	DB    *gorm.DB

	Auth     *services.AuthService
	Products *services.ProductService

	logger  logrus.FieldLogger
	closers []func() error
}

// New opens the database and external services named by cfg, prepares the
// schema and seed data, and builds the HTTP routes.
func New(cfg *config.Config, logger logrus.FieldLogger) (*App, error) {
	a := &App{logger: logger}

	db, err := repositories.OpenDatabase(cfg.DatabaseDriver, cfg.DatabaseDSN, logger)
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.closers = append(a.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	if err := repositories.AutoMigrate(db); err != nil {
		a.Close()
		return nil, err
	}

	// --- Repositories ---
	userRepo := repositories.NewGORMUserRepository(db)
	productRepo := repositories.NewGORMProductRepository(db)
	orderRequestRepo := repositories.NewGORMOrderRequestRepository(db)
	sessionRepo, err := a.sessionRepository(cfg, db)
	if err != nil {
		a.Close()
		return nil, err
	}

	// --- Services ---
	codec, err := services.NewSessionCodec(cfg.SessionSecret, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	sessionService := services.NewSessionService(sessionRepo, cfg.SessionTTL)
	guard := services.NewGuard(codec, sessionService, userRepo, logger)
	a.Auth = services.NewAuthService(userRepo, services.AdminCredentials{
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	}, logger)
	a.Products = services.NewProductService(productRepo, logger)
	orderRequestService := services.NewOrderRequestService(orderRequestRepo, productRepo, a.eventPublisher(cfg), logger)

	store, err := a.objectStore(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	uploadService := services.NewUploadService(store, cfg.UploadMaxWidth, logger)

	if err := a.Auth.EnsureAdminAccount(); err != nil {
		if !errors.Is(err, services.ErrAdminCredentialMismatch) {
			a.Close()
			return nil, err
		}
		logger.WithError(err).Warn("configured admin account not promoted")
	}
	if cfg.SeedCatalog {
		if _, err := a.Products.SeedIfEmpty(); err != nil {
			a.Close()
			return nil, err
		}
	}

	// --- HTTP ---
	app := fiber.New(fiber.Config{
		AppName:      "gemstore",
		ErrorHandler: handlers.ErrorHandler(logger),
		BodyLimit:    cfg.UploadMaxBytes + 1<<20,
	})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger(logger))
	app.Use(middleware.Metrics())
	if cfg.CORSOrigin != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigin,
			AllowCredentials: true,
			AllowHeaders:     "Origin, Content-Type, Accept, " + middleware.SessionHeader,
			ExposeHeaders:    middleware.SessionHeader,
		}))
	}

	app.Get("/health", a.handleHealth)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	if disk, ok := store.(*storage.DiskStore); ok && strings.HasPrefix(cfg.UploadPublicBaseURL, "/") {
		app.Static(cfg.UploadPublicBaseURL, disk.Root())
	}

	var authLimit fiber.Handler
	if cfg.AuthRateLimit > 0 {
		authLimit = middleware.NewRateLimiter(cfg.AuthRateLimit, logger).Handler()
	}

	api := app.Group("/api", middleware.Session(guard))
	handlers.NewAuthHandler(a.Auth, guard, cfg.CookieSecure, logger).RegisterRoutes(api, authLimit)
	handlers.NewProductHandler(a.Products).RegisterRoutes(api)
	handlers.NewOrderRequestHandler(orderRequestService).RegisterRoutes(api)
	handlers.NewAdminHandler(orderRequestService, logger).RegisterRoutes(api)
	handlers.NewUploadHandler(uploadService, int64(cfg.UploadMaxBytes)).RegisterRoutes(api)

	a.Fiber = app
	return a, nil
}

func (a *App) sessionRepository(cfg *config.Config, db *gorm.DB) (repositories.SessionRepository, error) {
	if cfg.SessionStore != "redis" {
		return repositories.NewGORMSessionRepository(db), nil
	}
	repo := repositories.NewRedisSessionRepository(cfg.RedisAddr, cfg.RedisPassword)
	if err := repo.Ping(); err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	a.closers = append(a.closers, repo.Close)
	a.logger.WithField("addr", cfg.RedisAddr).Info("using redis session store")
	return repo, nil
}

// eventPublisher connects to RabbitMQ when configured. Events are optional,
// so a broker that cannot be reached only disables them.
func (a *App) eventPublisher(cfg *config.Config) services.EventPublisher {
	if cfg.RabbitMQURL == "" {
		return nil
	}
	client, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, a.logger)
	if err != nil {
		a.logger.WithError(err).Warn("order request events disabled")
		return nil
	}
	a.closers = append(a.closers, client.Close)
	return client
}

func (a *App) objectStore(cfg *config.Config) (storage.ObjectStore, error) {
	if cfg.UploadBackend == "minio" {
		store, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL, cfg.UploadPublicBaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize minio store: %w", err)
		}
		return store, nil
	}
	return storage.NewDiskStore(cfg.UploadDir, cfg.UploadPublicBaseURL)
}

func (a *App) handleHealth(c *fiber.Ctx) error {
	code, health, database := fiber.StatusOK, "healthy", "up"
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()
	if sqlDB, err := a.DB.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		code, health, database = fiber.StatusServiceUnavailable, "degraded", "down"
	}
	return c.Status(code).JSON(fiber.Map{
		"status":   health,
		"time":     time.Now().Format(time.RFC3339),
		"database": database,
	})
}

// Close releases every resource opened by New, newest first.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}
