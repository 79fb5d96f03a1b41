package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"trainingcenter/internal/certificate/metrics"
	"trainingcenter/pkg/platform/circuit"
	"trainingcenter/pkg/requestcontext"
)

// Outcomes recorded per event.
const (
	OutcomeDelivered = "delivered"
	OutcomeFallback  = "fallback"
	OutcomeDropped   = "dropped"
	OutcomeFailed    = "failed"
)

type queued struct {
	ctx context.Context
	ev  Event
}

// Async queues events and publishes them on a background goroutine behind a
// circuit breaker. Notify never blocks: when the queue is full or the
// dispatcher is closed the event is dropped.
type Async struct {
	primary  Publisher
	fallback Publisher
	breaker  *circuit.Breaker
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	queue  chan queued
	done   chan struct{}
}

type Option func(*Async)

func WithFallback(p Publisher) Option {
	return func(a *Async) {
		a.fallback = p
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(a *Async) {
		a.breaker = b
	}
}

func WithBuffer(n int) Option {
	return func(a *Async) {
		if n > 0 {
			a.queue = make(chan queued, n)
		}
	}
}

// WithPublishTimeout bounds each primary publish attempt.
func WithPublishTimeout(d time.Duration) Option {
	return func(a *Async) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Async) {
		a.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Async) {
		a.metrics = m
	}
}

// NewAsync starts the dispatcher. Close must be called to drain it.
func NewAsync(primary Publisher, opts ...Option) *Async {
	a := &Async{
		primary: primary,
		breaker: circuit.New("certificate-notify"),
		timeout: 5 * time.Second,
		logger:  slog.Default(),
		queue:   make(chan queued, 256),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	go a.run()
	return a
}

// Notify queues ev. The caller's cancellation does not reach the publish,
// but its request-scoped values do.
func (a *Async) Notify(ctx context.Context, ev Event) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.drop(ctx, ev, "dispatcher closed")
		return
	}
	select {
	case a.queue <- queued{ctx: context.WithoutCancel(ctx), ev: ev}:
	default:
		a.drop(ctx, ev, "queue full")
	}
}

// Close stops accepting events and waits for queued ones to be published or
// for ctx to end.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Async) run() {
	defer close(a.done)
	for item := range a.queue {
		a.deliver(item.ctx, item.ev)
	}
}

func (a *Async) deliver(ctx context.Context, ev Event) {
	if a.breaker.Allow() {
		pctx, cancel := context.WithTimeout(ctx, a.timeout)
		err := a.primary.Publish(pctx, ev)
		cancel()
		if err == nil {
			if _, change := a.breaker.RecordSuccess(); change.Closed {
				a.logger.InfoContext(ctx, "notification circuit closed", "breaker", a.breaker.Name())
			}
			a.record(OutcomeDelivered)
			return
		}
		_, change := a.breaker.RecordFailure()
		a.logger.WarnContext(ctx, "certificate notification failed",
			"display_id", ev.DisplayID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		if change.Opened {
			a.logger.WarnContext(ctx, "notification circuit opened", "breaker", a.breaker.Name())
		}
	}

	if a.fallback == nil {
		a.record(OutcomeFailed)
		return
	}
	if err := a.fallback.Publish(ctx, ev); err != nil {
		a.logger.WarnContext(ctx, "certificate notification fallback failed",
			"display_id", ev.DisplayID,
			"error", err,
		)
		a.record(OutcomeFailed)
		return
	}
	a.record(OutcomeFallback)
}

func (a *Async) drop(ctx context.Context, ev Event, reason string) {
	a.logger.WarnContext(ctx, "certificate notification dropped",
		"display_id", ev.DisplayID,
		"reason", reason,
	)
	a.record(OutcomeDropped)
}

func (a *Async) record(outcome string) {
	if a.metrics != nil {
		a.metrics.IncrementNotification(outcome)
	}
}
