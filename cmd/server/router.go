package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trainingcenter/internal/certificate/handler"
	"trainingcenter/internal/platform/metrics"
	"trainingcenter/internal/platform/middleware"
	rlmw "trainingcenter/internal/ratelimit/middleware"
	rlmodels "trainingcenter/internal/ratelimit/models"
	"trainingcenter/pkg/platform/httputil"
	"trainingcenter/pkg/platform/middleware/admin"
	"trainingcenter/pkg/platform/middleware/auth"
	"trainingcenter/pkg/platform/middleware/metadata"
	"trainingcenter/pkg/platform/middleware/request"
	"trainingcenter/pkg/platform/middleware/requesttime"
)

const (
	publicTimeout = 10 * time.Second
	healthTimeout = 2 * time.Second
)

type healthCheck struct {
	name string
	fn   func(context.Context) error
}

type routerDeps struct {
	logger    *slog.Logger
	handler   *handler.Handler
	validator auth.JWTValidator
	limiter   *rlmw.Middleware
	metrics   *metrics.Metrics
	registry  *prometheus.Registry
	expose    bool
	checks    []healthCheck
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(middleware.Recovery(d.logger))
	r.Use(middleware.AccessLog(d.logger, d.metrics))

	r.Get("/health", healthHandler(d.checks, d.logger))
	if d.expose && d.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(d.limiter.RateLimit(rlmodels.ClassLookup))
		r.Use(middleware.Timeout(publicTimeout))
		d.handler.RegisterPublic(r)
	})

	// Admin routes include the event stream, so no request timeout here.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(d.validator, d.logger))
		r.Use(admin.RequireAdmin(d.logger))
		r.Use(d.limiter.RateLimitAuthenticated(rlmodels.ClassAdmin))
		d.handler.RegisterAdmin(r)
	})
	return r
}

func healthHandler(checks []healthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		status := http.StatusOK
		results := map[string]string{}
		for _, c := range checks {
			if err := c.fn(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed", "dependency", c.name, "error", err)
				results[c.name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			results[c.name] = "up"
		}
		body := map[string]any{"status": "ok", "dependencies": results}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		httputil.WriteJSON(w, status, body)
	}
}
