// Package requesttime pins one "now" per request, so a record's createdAt,
// its display-id year and its log lines agree.
package requesttime

import (
	"net/http"
	"time"

	"trainingcenter/pkg/requestcontext"
)

// Middleware stamps each request with the current UTC time.
func Middleware(next http.Handler) http.Handler {
	return WithClock(time.Now)(next)
}

// WithClock builds the middleware around a custom time source.
func WithClock(now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), now().UTC())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
