// Package metadata records who is calling: the client IP used for rate
// limits and audit entries, and the user agent for access logs.
package metadata

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type client struct {
	ip        string
	userAgent string
}

type clientKey struct{}

// ClientMetadata must run before rate limiting and access logging.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithClientMetadata(r.Context(), ClientIPFromRequest(r), r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	return context.WithValue(ctx, clientKey{}, client{ip: clientIP, userAgent: userAgent})
}

func GetClientIP(ctx context.Context) string {
	c, _ := ctx.Value(clientKey{}).(client)
	return c.ip
}

func GetUserAgent(ctx context.Context) string {
	c, _ := ctx.Value(clientKey{}).(client)
	return c.userAgent
}

// ClientIPFromRequest takes the first X-Forwarded-For hop, then X-Real-IP,
// then the peer address. The service sits behind the portal's proxy.
func ClientIPFromRequest(r *http.Request) string {
	for _, h := range []string{"X-Forwarded-For", "X-Real-IP"} {
		if v := r.Header.Get(h); v != "" {
			first, _, _ := strings.Cut(v, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
