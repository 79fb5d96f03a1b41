// Package middleware applies sliding-window limits to HTTP routes.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"trainingcenter/internal/ratelimit/metrics"
	"trainingcenter/internal/ratelimit/models"
	"trainingcenter/pkg/platform/httputil"
	metadata "trainingcenter/pkg/platform/middleware/metadata"
	"trainingcenter/pkg/requestcontext"
)

// BucketStore counts requests per key.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit models.Limit) (*models.Result, error)
}

type Middleware struct {
	store    BucketStore
	limits   map[models.EndpointClass]models.Limit
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

// WithDisabled turns every limit into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = mt
	}
}

// WithLimit overrides the limit for class.
func WithLimit(class models.EndpointClass, limit models.Limit) Option {
	return func(m *Middleware) {
		if limit.Requests > 0 && limit.Window > 0 {
			m.limits[class] = limit
		}
	}
}

func New(store BucketStore, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		store:  store,
		logger: logger,
		limits: map[models.EndpointClass]models.Limit{
			models.ClassLookup: {Requests: 60, Window: time.Minute},
			models.ClassAdmin:  {Requests: 300, Window: time.Minute},
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimit limits requests per client IP.
func (m *Middleware) RateLimit(class models.EndpointClass) func(http.Handler) http.Handler {
	return m.limit(class, "client IP", func(r *http.Request) string {
		return metadata.GetClientIP(r.Context())
	})
}

// RateLimitAuthenticated limits requests per authenticated staff member and
// must run after the auth middleware. Requests without an actor fall back to
// the client IP.
func (m *Middleware) RateLimitAuthenticated(class models.EndpointClass) func(http.Handler) http.Handler {
	return m.limit(class, "staff member", func(r *http.Request) string {
		if actor := requestcontext.ActorID(r.Context()); actor != "" {
			return "staff:" + actor
		}
		return metadata.GetClientIP(r.Context())
	})
}

func (m *Middleware) limit(class models.EndpointClass, subject string, identify func(*http.Request) string) func(http.Handler) http.Handler {
	limit := m.limits[class]
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled || limit.Requests <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			identifier := identify(r)
			result, err := m.store.Allow(ctx, models.BucketKey(class, identifier), limit)
			if err != nil {
				// Fail open on store errors.
				m.logger.ErrorContext(ctx, "failed to check rate limit",
					"class", class,
					"error", err,
				)
				if m.metrics != nil {
					m.metrics.IncrementStoreError(string(class))
				}
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)
			if !result.Allowed {
				m.logger.WarnContext(ctx, "rate limit exceeded",
					"class", class,
					"request_id", requestcontext.RequestID(ctx),
				)
				if m.metrics != nil {
					m.metrics.IncrementRejection(string(class))
				}
				writeRateLimitExceeded(w, result, requestcontext.Now(ctx), subject)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.Result, now time.Time, subject string) {
	retryAfter := result.RetryAfter(now)
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.ExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Too many requests from this " + subject + ". Please try again later.",
		RetryAfter: retryAfter,
	})
}
