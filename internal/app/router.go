package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/munigestion/munigestion/internal/auth"
	"github.com/munigestion/munigestion/internal/authz"
	"github.com/munigestion/munigestion/internal/observability"
	"github.com/munigestion/munigestion/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Metrics        *observability.Metrics
	Pool           *pgxpool.Pool
	AuthHandler    *auth.Handler
	AuthMiddleware auth.Middleware
	AuthzHandler   *authz.Handler
	UsersHandler   *users.Handler
}

// NewRouter constructs the chi.Router with munigestion defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if params.Pool != nil {
			if err := params.Pool.Ping(req.Context()); err != nil {
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if params.Metrics != nil {
		r.Handle("/metrics", params.Metrics.Handler())
	}

	r.Post("/auth/login", params.AuthHandler.Login)

	r.Group(func(r chi.Router) {
		r.Use(params.AuthMiddleware.Authenticate)
		r.Post("/auth/logout", params.AuthHandler.Logout)
		params.AuthzHandler.MountRoutes(r)
		r.Route("/users", func(r chi.Router) {
			params.UsersHandler.MountRoutes(r)
			r.Route("/{id}/permissions", params.AuthzHandler.MountUserPermissionRoutes)
		})
	})

	return r
}
