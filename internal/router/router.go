package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	appMiddleware "github.com/FACorreiaa/go-taskflow-api/app/middleware"
	"github.com/FACorreiaa/go-taskflow-api/internal/api/auth"
	"github.com/FACorreiaa/go-taskflow-api/internal/broadcast"
	"github.com/FACorreiaa/go-taskflow-api/internal/cache"
	"github.com/FACorreiaa/go-taskflow-api/internal/container"
	"github.com/FACorreiaa/go-taskflow-api/internal/types"
)

// SetupRouter wires every route onto a fresh chi router. Server-wide
// middleware (requestID, logger, recoverer, metrics) is applied by main
// before mounting this router.
func SetupRouter(c *container.Container) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-Cache"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	r.Get("/docs/*", httpSwagger.Handler())

	authenticate := auth.Authenticate(c.Logger, c.Config.JWT)

	r.Route("/api", func(r chi.Router) {
		// Public auth routes. Login carries its own brute-force limiter.
		r.Group(func(r chi.Router) {
			r.Post("/auth/register", c.AuthHandler.Register)
			r.With(appMiddleware.LoginRateLimiter()).Post("/auth/login", c.AuthHandler.Login)
		})

		// Everything below requires a valid token.
		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Get("/auth/profile", c.AuthHandler.Profile)
			r.Post("/auth/logout", c.AuthHandler.Logout)

			r.Route("/tasks", func(r chi.Router) {
				r.With(
					appMiddleware.RoleBasedRateLimiter(),
					cache.Middleware(c.ResponseCache, c.Logger),
				).Get("/", c.TaskHandler.ListTasks)

				r.With(appMiddleware.SensitiveEndpointLimiter()).Group(func(r chi.Router) {
					r.Post("/", c.TaskHandler.CreateTask)
					r.Put("/{id}", c.TaskHandler.UpdateTask)
					r.Delete("/{id}", c.TaskHandler.DeleteTask)
					r.With(auth.RequireRole(c.Logger, types.RoleAdmin, types.RoleManager)).
						Put("/{taskId}/assign", c.TaskHandler.AssignTask)
				})
			})

			r.With(appMiddleware.RoleBasedRateLimiter()).
				Get("/analytics/tasks", c.AnalyticsHandler.TaskAnalytics)

			r.With(
				appMiddleware.SensitiveEndpointLimiter(),
				auth.RequireRole(c.Logger, types.RoleAdmin),
			).Put("/admin/users/{userID}/role", c.AdminHandler.UpdateUserRole)
		})
	})

	// Live task events; the token rides the Authorization header on upgrade.
	r.With(authenticate).Get("/ws", broadcast.ServeWS(c.Hub, c.Logger))

	return r
}
