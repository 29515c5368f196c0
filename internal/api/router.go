package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/sungwon/mailchannels-relay/internal/delivery"
)

// RouterConfig holds the dependencies of the HTTP API.
type RouterConfig struct {
	Service      delivery.Service
	Log          zerolog.Logger
	MaxBodyBytes int64

	// Auth guards /api/v1 when set.
	Auth func(http.Handler) http.Handler

	// Logs serves GET /api/v1/deliveries when set.
	Logs DeliveryLogLister

	// Checks are probed by /readyz.
	Checks []ReadinessCheck
}

// NewRouter creates a chi.Mux with all routes, middleware, and handlers configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestContext(cfg.Log))
	r.Use(Observe(cfg.Log))
	r.Use(Recover(cfg.Log))

	r.Get("/healthz", HealthzHandler())
	r.Get("/readyz", ReadyzHandler(cfg.Checks))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Auth != nil {
			r.Use(cfg.Auth)
		}
		r.Post("/send", SendHandler(cfg.Service, cfg.MaxBodyBytes))
		if cfg.Logs != nil {
			r.Get("/deliveries", ListDeliveriesHandler(cfg.Logs))
		}
	})

	return r
}
