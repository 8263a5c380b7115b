// Package router wires the middleware stack and the HTTP routes.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/veilport/veilport/internal/api/handlers"
	"github.com/veilport/veilport/internal/api/middleware"
	"github.com/veilport/veilport/internal/config"
	"github.com/veilport/veilport/internal/pkg/logger"
	"github.com/veilport/veilport/internal/pkg/metrics"
)

// Deps holds everything the router needs
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	Auth    *handlers.AuthHandler
	Premium *handlers.PremiumHandler
	Admin   *handlers.AdminHandler
	Health  *handlers.HealthHandler
}

// New builds the chi router with the full middleware stack
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	rl := middleware.NewRateLimiter(rate.Limit(10), 20)

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{d.Config.Server.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", d.Health.Healthz)
	r.Get("/readyz", d.Health.Readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			// Login endpoints are rate limited per client IP.
			r.Group(func(r chi.Router) {
				r.Use(rl.Middleware)
				r.Post("/register", d.Auth.Register)
				r.Post("/login", d.Auth.Login)
				r.Post("/2fa/validate", d.Auth.Validate2FA)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(d.Config.Auth.JWTSecret))
				r.Get("/me", d.Auth.Me)
				r.Post("/logout", d.Auth.Logout)
				r.Post("/2fa/setup", d.Auth.Setup2FA)
				r.Post("/2fa/verify", d.Auth.Verify2FA)
				r.Post("/2fa/disable", d.Auth.Disable2FA)
			})
		})

		r.Route("/premium", func(r chi.Router) {
			r.Use(middleware.Auth(d.Config.Auth.JWTSecret))
			r.Get("/status", d.Premium.Status)
			r.Post("/redeem", d.Premium.Redeem)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(d.Config.Auth.JWTSecret))
			r.Use(middleware.RequireAdmin)
			r.Post("/premium-codes", d.Admin.CreateCode)
			r.Get("/premium-codes", d.Admin.ListCodes)
			r.Get("/users", d.Admin.ListUsers)
		})
	})

	return r
}
