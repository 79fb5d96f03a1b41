package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainingcenter/internal/platform/logger"
	"trainingcenter/internal/ratelimit/metrics"
	"trainingcenter/internal/ratelimit/models"
	"trainingcenter/internal/ratelimit/store/bucket"
	metadata "trainingcenter/pkg/platform/middleware/metadata"
	"trainingcenter/pkg/requestcontext"
)

type failingStore struct{}

func (failingStore) Allow(context.Context, string, models.Limit) (*models.Result, error) {
	return nil, errors.New("redis: connection refused")
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func lookupFrom(ip string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/certificates/CERT-2024-0001", nil)
	return req.WithContext(metadata.WithClientMetadata(req.Context(), ip, "test"))
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRateLimit(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	rl := New(bucket.NewInMemoryBucketStore(), logger.Discard(),
		WithLimit(models.ClassLookup, models.Limit{Requests: 2, Window: time.Minute}),
		WithMetrics(m),
	)
	h := rl.RateLimit(models.ClassLookup)(okHandler)

	for i := range 2 {
		rr := serve(h, lookupFrom("203.0.113.7"))
		require.Equal(t, http.StatusOK, rr.Code, "request %d", i+1)
		assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Limit"))
	}

	rr := serve(h, lookupFrom("203.0.113.7"))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Contains(t, rr.Body.String(), `"error":"rate_limit_exceeded"`)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.Rejections.WithLabelValues("lookup")))

	t.Run("other clients keep their own budget", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serve(h, lookupFrom("198.51.100.1")).Code)
	})
}

func TestRateLimitAuthenticatedKeysByStaffMember(t *testing.T) {
	rl := New(bucket.NewInMemoryBucketStore(), logger.Discard(),
		WithLimit(models.ClassAdmin, models.Limit{Requests: 1, Window: time.Minute}),
	)
	h := rl.RateLimitAuthenticated(models.ClassAdmin)(okHandler)

	asStaff := func(staffID string) *http.Request {
		req := lookupFrom("10.0.0.1")
		return req.WithContext(requestcontext.WithActor(req.Context(), staffID, "admin"))
	}

	assert.Equal(t, http.StatusOK, serve(h, asStaff("staff-1")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, asStaff("staff-1")).Code)
	assert.Equal(t, http.StatusOK, serve(h, asStaff("staff-2")).Code, "same IP, different staff member")
}

func TestRateLimitFailsOpen(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	h := New(failingStore{}, logger.Discard(), WithMetrics(m)).RateLimit(models.ClassLookup)(okHandler)

	rr := serve(h, lookupFrom("203.0.113.7"))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.StoreErrors.WithLabelValues("lookup")))
}

func TestRateLimitDisabled(t *testing.T) {
	h := New(failingStore{}, logger.Discard(), WithDisabled(true)).RateLimit(models.ClassLookup)(okHandler)
	assert.Equal(t, http.StatusOK, serve(h, lookupFrom("203.0.113.7")).Code)
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		resetAt time.Time
		want    int
	}{
		{"rounds up", now.Add(1500 * time.Millisecond), 2},
		{"whole seconds", now.Add(30 * time.Second), 30},
		{"already reset", now.Add(-time.Second), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &models.Result{ResetAt: tt.resetAt}
			assert.Equal(t, tt.want, r.RetryAfter(now))
		})
	}
}
