// Package publisher writes audit events synchronously, enriched with the
// request's actor and correlation data.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	audit "trainingcenter/pkg/platform/audit"
	metadata "trainingcenter/pkg/platform/middleware/metadata"
	"trainingcenter/pkg/requestcontext"
)

// Publisher persists audit events. Emit blocks until the store accepts or
// rejects the event.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit fills the timestamp, actor, request id and client IP from ctx where
// the event leaves them empty, then appends it.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	start := time.Now()

	if !event.Action.IsValid() {
		return fmt.Errorf("audit event has unknown action %q", event.Action)
	}
	if event.CertificateID.IsNil() {
		return fmt.Errorf("audit event requires a certificate id")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.ActorID == "" {
		event.ActorID = requestcontext.ActorID(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = metadata.GetClientIP(ctx)
	}

	if err := p.store.Append(ctx, event); err != nil {
		if p.metrics != nil {
			p.metrics.IncPersistFailures()
		}
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "audit event not persisted",
				"action", event.Action,
				"certificate_id", event.CertificateID,
				"error", err,
			)
		}
		return fmt.Errorf("audit persistence failed: %w", err)
	}

	if p.metrics != nil {
		p.metrics.ObservePersistDuration(start)
		p.metrics.IncEventsEmitted(string(event.Action))
	}
	return nil
}
