package container

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/FACorreiaa/go-taskflow-api/app/db"
	"github.com/FACorreiaa/go-taskflow-api/config"
	"github.com/FACorreiaa/go-taskflow-api/internal/api/admin"
	"github.com/FACorreiaa/go-taskflow-api/internal/api/analytics"
	"github.com/FACorreiaa/go-taskflow-api/internal/api/auth"
	"github.com/FACorreiaa/go-taskflow-api/internal/api/task"
	"github.com/FACorreiaa/go-taskflow-api/internal/broadcast"
	"github.com/FACorreiaa/go-taskflow-api/internal/cache"
	"github.com/FACorreiaa/go-taskflow-api/internal/notify"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *slog.Logger
	Pool   *pgxpool.Pool

	ResponseCache *cache.Cache
	Hub           *broadcast.Hub
	Notifier      *notify.HTTPNotifier

	AuthHandler      *auth.HandlerImpl
	TaskHandler      *task.HandlerImpl
	AnalyticsHandler *analytics.HandlerImpl
	AdminHandler     *admin.HandlerImpl
}

// NewContainer initializes and returns a new dependency container
func NewContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}

	responseCache := cache.New(cfg.Cache.TTL, cfg.Cache.CleanupInterval, logger)
	hub := broadcast.NewHub(logger)
	notifier := notify.NewHTTPNotifier(
		cfg.Notification.ServiceURL,
		cfg.Notification.APIKey,
		cfg.Notification.Timeout,
		logger,
	)

	// Repositories
	authRepo := auth.NewPostgresRepository(pool, logger)
	taskRepo := task.NewPostgresRepository(pool, logger)

	// Services
	authService := auth.NewService(authRepo, cfg, logger)
	taskService := task.NewService(taskRepo, authRepo, responseCache, hub, notifier, logger)
	analyticsService := analytics.NewService(taskRepo, logger)

	// Handlers
	authHandler := auth.NewHandlerImpl(authService, logger)
	taskHandler := task.NewHandlerImpl(taskService, logger)
	analyticsHandler := analytics.NewHandlerImpl(analyticsService, logger)
	adminHandler := admin.NewHandlerImpl(authRepo, logger)

	return &Container{
		Config:           cfg,
		Logger:           logger,
		Pool:             pool,
		ResponseCache:    responseCache,
		Hub:              hub,
		Notifier:         notifier,
		AuthHandler:      authHandler,
		TaskHandler:      taskHandler,
		AnalyticsHandler: analyticsHandler,
		AdminHandler:     adminHandler,
	}, nil
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// WaitForDB waits for the database to be ready
func (c *Container) WaitForDB(ctx context.Context) bool {
	return database.WaitForDB(ctx, c.Pool, c.Logger)
}

// RunMigrations runs database migrations
func (c *Container) RunMigrations(connectionURL string) error {
	return database.RunMigrations(connectionURL, c.Logger)
}
