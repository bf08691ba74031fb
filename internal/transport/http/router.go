// Package httptransport assembles the chi router: shared middleware,
// operational endpoints and the /api/auth routes.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"takenotes/internal/platform/metrics"
	"takenotes/internal/platform/middleware"
	"takenotes/pkg/platform/httputil"
	"takenotes/pkg/platform/middleware/metadata"
	"takenotes/pkg/platform/middleware/requesttime"
)

// AuthRoutes mounts the auth endpoints. requireAuth guards the routes that
// need a bearer token.
type AuthRoutes interface {
	Register(r chi.Router, requireAuth func(http.Handler) http.Handler)
}

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config carries everything NewRouter wires together.
type Config struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	RequestTimeout time.Duration
	Auth           AuthRoutes
	RequireAuth    func(http.Handler) http.Handler
	// MetricsHandler serves /metrics. Defaults to the default Prometheus registry.
	MetricsHandler http.Handler
	HealthChecks   map[string]HealthCheck
}

// NewRouter wires all public endpoints.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger, cfg.Metrics))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)

	r.Get("/health", healthHandler(logger, cfg.HealthChecks))
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/api/auth", func(r chi.Router) {
		cfg.Auth.Register(r, cfg.RequireAuth)
	})
	return r
}

func healthHandler(logger *slog.Logger, checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed",
					"dependency", name,
					"error", err,
				)
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status":     "unavailable",
					"dependency": name,
				})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
