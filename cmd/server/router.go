package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/simple-todos/internal/api"
	apiMiddleware "github.com/phrazzld/simple-todos/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() (http.Handler, error) {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))
	if app.metrics != nil {
		r.Use(apiMiddleware.NewMetricsMiddleware(app.metrics))
	}
	r.Use(middleware.Recoverer)

	authHandler := api.NewAuthHandler(app.userService, app.logger)
	taskHandler := api.NewTaskHandler(app.taskService, app.metrics, app.logger)
	feedHandler := api.NewFeedHandler(
		app.hub,
		app.taskService,
		app.config.Feed.BufferSize,
		time.Duration(app.config.Feed.PingIntervalSeconds)*time.Second,
		app.logger,
	)

	registry := api.NewMethodRegistry()
	if err := api.RegisterTaskMethods(registry, app.taskService); err != nil {
		return nil, fmt.Errorf("failed to register task methods: %w", err)
	}
	methodHandler := api.NewMethodHandler(registry, app.metrics, app.logger)

	var onReject func()
	if app.metrics != nil {
		onReject = app.metrics.RateLimited.Inc
	}
	limiter := apiMiddleware.NewRateLimiter(
		app.config.RateLimit.RequestsPerSecond,
		app.config.RateLimit.Burst,
		onReject,
	)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		r.Use(limiter.Middleware)

		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.RefreshToken)

		// Credentials are optional here: anonymous callers reach the
		// service, which rejects mutations with not-authorized.
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Identify)

			r.Get("/tasks", taskHandler.ListTasks)
			r.Post("/tasks", taskHandler.CreateTask)
			r.Get("/tasks/subscribe", feedHandler.Subscribe)
			r.Delete("/tasks/{id}", taskHandler.DeleteTask)
			r.Put("/tasks/{id}/checked", taskHandler.SetChecked)
			r.Put("/tasks/{id}/private", taskHandler.SetPrivate)

			r.Post("/methods/{name}", methodHandler.Call)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})
	if app.metrics != nil {
		r.Method(http.MethodGet, "/metrics", app.metrics.Handler())
	}

	return r, nil
}
