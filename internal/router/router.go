package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storefront-auth/internal/config"
	"storefront-auth/internal/handler"
	"storefront-auth/internal/middleware"
)

type Handlers struct {
	Auth   *handler.AuthHandler
	Health *handler.HealthHandler
}

func New(cfg *config.Config, sessionMiddleware *middleware.SessionMiddleware, handlers Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM, cfg.OTPRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", handlers.Health.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Get("/google", handlers.Auth.GoogleLogin)
			auth.Get("/google/callback", handlers.Auth.GoogleCallback)
			auth.Post("/set-password", handlers.Auth.SetPassword)
			auth.Post("/register", handlers.Auth.Register)
			auth.Post("/login", handlers.Auth.Login)
			auth.Post("/request-otp/{purpose}", handlers.Auth.RequestOTP)
			auth.Post("/verify-otp/{purpose}", handlers.Auth.VerifyOTP)
			auth.Post("/forgot-password", handlers.Auth.ForgotPassword)
			auth.Post("/set-password/forgot-password", handlers.Auth.ResetPassword)

			auth.With(sessionMiddleware.RequireSession).Get("/refresh", handlers.Auth.Refresh)
			auth.With(sessionMiddleware.RequireSession).Post("/logout", handlers.Auth.Logout)
			auth.With(sessionMiddleware.RequireSession).Get("/me", handlers.Auth.Me)
		})
	})

	return r
}
