package admin

import (
	"log/slog"
	"net/http"

	request "trainingcenter/pkg/platform/middleware/request"
	"trainingcenter/pkg/requestcontext"
)

// RoleAdmin is the staff role allowed to issue, edit and delete certificates.
const RoleAdmin = "admin"

// RequireAdmin rejects requests whose authenticated actor is not an admin.
// It must run after auth.RequireAuth.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if requestcontext.ActorID(ctx) == "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"authentication required"}`))
				return
			}
			if requestcontext.ActorRole(ctx) != RoleAdmin {
				logger.WarnContext(ctx, "admin role required",
					"request_id", request.GetRequestID(ctx),
					"actor_id", requestcontext.ActorID(ctx),
					"role", requestcontext.ActorRole(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"admin role required"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
