package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/peerpay/internal/adapter/http/handler"
	"github.com/iho/peerpay/internal/adapter/http/middleware"
	"github.com/iho/peerpay/internal/infrastructure/auth"
	"github.com/iho/peerpay/internal/infrastructure/metrics"
	"github.com/iho/peerpay/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AuthHandler         *handler.AuthHandler
	AccountHandler      *handler.AccountHandler
	TransferHandler     *handler.TransferHandler
	NotificationHandler *handler.NotificationHandler
	HealthHandler       *handler.HealthHandler
	JWTManager          *auth.JWTManager
	IdempotencyStore    usecase.IdempotencyStore
	IdempotencyTTL      time.Duration
	RateLimiter         *middleware.RateLimiter
	Logger              zerolog.Logger
	Metrics             *metrics.Metrics
}

// NewRouter creates the HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(cfg.Metrics).Wrap)
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", cfg.AuthHandler.Signup)
			r.Post("/signin", cfg.AuthHandler.Signin)
		})

		// Everything past auth requires a token.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTManager))

			if cfg.IdempotencyStore != nil {
				r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.Metrics, cfg.IdempotencyTTL).Wrap)
			}

			r.Get("/accounts", cfg.AccountHandler.Directory)
			r.Get("/me", cfg.AccountHandler.Me)
			r.Get("/me/transactions", cfg.AccountHandler.History)

			r.Post("/transfers", cfg.TransferHandler.Create)
			r.Post("/notifications/poll", cfg.NotificationHandler.Poll)
		})
	})

	return r
}
