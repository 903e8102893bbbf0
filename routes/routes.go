package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/upb/serverless-todos/app"
	"github.com/upb/serverless-todos/handlers"
	"github.com/upb/serverless-todos/utils"
)

// SetupRoutes configures the local server routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(deps),
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	health := deps.HealthHandler
	if health == nil {
		health = handlers.NewHealthHandler(deps.Logger, deps.HealthChecks()...)
	}
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	// Authorized routes
	if deps.AuthMiddleware != nil && deps.TodosHandler != nil {
		r.Route("/todos", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Get("/", deps.TodosHandler.ListTodos)
		})
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}

func allowedOrigins(deps *app.Dependencies) []string {
	if deps.Config == nil || len(deps.Config.CORS.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return deps.Config.CORS.AllowedOrigins
}
