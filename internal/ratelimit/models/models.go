// Package models holds the rate limiting vocabulary shared by the stores and
// the HTTP middleware.
package models

import "time"

// EndpointClass groups routes that share a limit.
type EndpointClass string

const (
	// ClassLookup covers the public certificate lookups, keyed by client IP.
	ClassLookup EndpointClass = "lookup"
	// ClassAdmin covers authenticated admin routes, keyed by staff member.
	ClassAdmin EndpointClass = "admin"
)

func (c EndpointClass) IsValid() bool {
	return c == ClassLookup || c == ClassAdmin
}

// Limit is the number of requests allowed per sliding window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Result is the outcome of one check against a bucket.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns whole seconds until the bucket admits another request,
// never less than one.
func (r *Result) RetryAfter(now time.Time) int {
	secs := int(r.ResetAt.Sub(now).Seconds() + 0.999)
	if secs < 1 {
		return 1
	}
	return secs
}

// ExceededResponse is the 429 body.
type ExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"error_description"`
	RetryAfter int    `json:"retry_after"`
}

// BucketKey scopes an identifier to a class.
func BucketKey(class EndpointClass, identifier string) string {
	return "rl:" + string(class) + ":" + identifier
}
