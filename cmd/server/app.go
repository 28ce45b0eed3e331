package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/simple-todos/internal/config"
	"github.com/phrazzld/simple-todos/internal/events"
	"github.com/phrazzld/simple-todos/internal/platform/metrics"
	"github.com/phrazzld/simple-todos/internal/platform/postgres"
	"github.com/phrazzld/simple-todos/internal/publication"
	"github.com/phrazzld/simple-todos/internal/service"
	"github.com/phrazzld/simple-todos/internal/service/auth"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	metrics *metrics.Metrics
	hub     *publication.Hub

	jwtService  auth.JWTService
	userService service.UserService
	taskService service.TaskService
}

// newApplication creates a new application instance with all dependencies initialized.
// It accepts core dependencies like configuration, logger, and database connection that
// must be established before application initialization.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.metrics, err = metrics.New()
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	userStore := postgres.NewPostgresUserStore(db, cfg.Auth.BCryptCost, logger)
	taskStore := postgres.NewPostgresTaskStore(db, logger)

	// Mutations fan out to the publication hub through the emitter.
	app.hub = publication.NewHub(logger, publication.WithSubscriberGauge(app.metrics.Subscribers))
	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(app.hub)

	app.taskService, err = service.NewTaskService(
		service.NewTaskRepositoryAdapter(taskStore, db),
		emitter,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	app.userService = service.NewUserService(
		userStore,
		db,
		app.jwtService,
		auth.NewBcryptVerifier(),
		time.Duration(cfg.Auth.TokenLifetimeMinutes)*time.Minute,
		logger,
	)

	logger.Info("application initialized successfully")
	return app, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (app *application) Run(ctx context.Context) error {
	router, err := app.setupRouter()
	if err != nil {
		return fmt.Errorf("failed to set up router: %w", err)
	}

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.hub != nil {
		app.hub.Close()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
