package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/khula/khulasync/internal/adapter/http/handler"
	"github.com/khula/khulasync/internal/adapter/http/middleware"
	"github.com/khula/khulasync/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	RecordHandler    *handler.RecordHandler
	SyncHandler      *handler.SyncHandler
	PaymentHandler   *handler.PaymentHandler
	HealthHandler    *handler.HealthHandler
	IdempotencyStore usecase.IdempotencyStore
	RateLimiter      *middleware.RateLimiter
	Logger           zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Metrics)
	r.Use(middleware.Recovery)
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health and metrics endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore)
			r.Use(idempotencyMiddleware.Wrap)
		}

		// Entity records
		r.Route("/records/{entityType}", func(r chi.Router) {
			r.Post("/", cfg.RecordHandler.Create)
			r.Get("/", cfg.RecordHandler.List)
			r.Get("/{id}", cfg.RecordHandler.Get)
			r.Put("/{id}", cfg.RecordHandler.Update)
			r.Delete("/{id}", cfg.RecordHandler.Delete)
		})

		// Sync queue
		r.Route("/sync", func(r chi.Router) {
			r.Get("/status", cfg.SyncHandler.Status)
			r.Post("/now", cfg.SyncHandler.SyncNow)
			r.Get("/queue", cfg.SyncHandler.ListQueue)
			r.Get("/dead", cfg.SyncHandler.ListDead)
			r.Post("/queue/{id}/requeue", cfg.SyncHandler.Requeue)
		})

		// Payments
		r.Route("/payments", func(r chi.Router) {
			r.Post("/", cfg.PaymentHandler.Process)
			r.Get("/offline", cfg.PaymentHandler.ListOffline)
			r.Post("/replay", cfg.PaymentHandler.Replay)
			r.Get("/{id}/status", cfg.PaymentHandler.Status)
		})
	})

	return r
}
