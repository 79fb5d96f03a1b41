package testutil

import (
	"net/http"

	"trainingcenter/pkg/requestcontext"
)

// WithActor attaches an authenticated staff member to the request context,
// as the admin auth middleware would.
func WithActor(req *http.Request, actorID, role string) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actorID, role))
}

// WithAdmin is WithActor for the admin role.
func WithAdmin(req *http.Request, actorID string) *http.Request {
	return WithActor(req, actorID, "admin")
}
