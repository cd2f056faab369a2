package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/delordemm1/go-auth-sessions/internal/config"
	"github.com/delordemm1/go-auth-sessions/internal/metrics"
	appmw "github.com/delordemm1/go-auth-sessions/internal/middleware"
	"github.com/delordemm1/go-auth-sessions/internal/modules/user"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// New creates the router with every route mounted. Auth routes live under /api.
func New(cfg *config.Config, log *slog.Logger, userService user.Service, sessions appmw.Authorizer) chi.Router {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(metrics.Middleware)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(appmw.CORS(cfg.Server.WebOrigin))

	router.Handle("/metrics", metrics.Handler())

	apiConfig := huma.DefaultConfig("Auth Sessions API", "1.0.0")
	apiConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}
	api := humachi.New(router, apiConfig)
	api.UseMiddleware(appmw.ClientMeta)

	userHandler := user.NewHandler(userService, user.CookieConfig{
		Name:   cfg.Session.CookieName,
		Path:   "/api/auth",
		Secure: cfg.Server.IsProduction(),
		MaxAge: cfg.JWT.RefreshTTL,
	}, log)
	userHandler.RegisterRoutes(huma.NewGroup(api, "/api"), appmw.RequireSession(sessions, log))

	// Register a simple health check endpoint.
	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health Check",
		Description: "Responds with the server's health status.",
	}, func(ctx context.Context, input *struct{}) (*struct {
		Body struct {
			Status string `json:"status"`
		}
	}, error) {
		resp := &struct {
			Body struct {
				Status string `json:"status"`
			}
		}{}
		resp.Body.Status = "ok"
		return resp, nil
	})

	return router
}
