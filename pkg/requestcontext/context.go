// Package requestcontext carries request-scoped values (actor, request id,
// request time) without depending on net/http. Middleware writes them and
// services read them.
package requestcontext

import (
	"context"
	"time"
)

type key int

const (
	actorIDKey key = iota
	actorRoleKey
	requestIDKey
	requestTimeKey
)

func value[T any](ctx context.Context, k key) (T, bool) {
	v, ok := ctx.Value(k).(T)
	return v, ok
}

// ActorID is the authenticated staff member's subject, or "".
func ActorID(ctx context.Context) string {
	id, _ := value[string](ctx, actorIDKey)
	return id
}

func ActorRole(ctx context.Context) string {
	role, _ := value[string](ctx, actorRoleKey)
	return role
}

// WithActor records who is performing an admin action.
func WithActor(ctx context.Context, actorID, role string) context.Context {
	ctx = context.WithValue(ctx, actorIDKey, actorID)
	return context.WithValue(ctx, actorRoleKey, role)
}

func RequestID(ctx context.Context) string {
	id, _ := value[string](ctx, requestIDKey)
	return id
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// Now is the time pinned for the request. Outside a request (CLI, seeding)
// it is the wall clock.
func Now(ctx context.Context) time.Time {
	if t, ok := value[time.Time](ctx, requestTimeKey); ok {
		return t
	}
	return time.Now()
}

// WithTime pins the request time. Tests use it to fix the issuance year.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey, t)
}
