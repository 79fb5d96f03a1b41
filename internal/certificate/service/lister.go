package service

import (
	"context"
	"log/slog"

	"trainingcenter/internal/certificate/grouping"
	"trainingcenter/internal/certificate/metrics"
	"trainingcenter/internal/certificate/models"
	dErrors "trainingcenter/pkg/domain-errors"
)

// Lister serves the grouped administrative listing.
type Lister struct {
	store   Store
	feed    Subscriber
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewLister builds a Lister. feed may be nil, in which case Watch is unavailable.
func NewLister(store Store, feed Subscriber, opts ...Option) *Lister {
	o := newOptions(opts)
	return &Lister{
		store:   store,
		feed:    feed,
		logger:  o.logger,
		metrics: o.metrics,
	}
}

// Groups returns every pair's version history, most recently issued first.
func (l *Lister) Groups(ctx context.Context) ([]models.Group, error) {
	records, err := l.store.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list certificates")
	}
	return grouping.Group(records), nil
}

// Watch streams a grouped snapshot now and after every change to the store.
// The channel closes when ctx is done or the feed shuts down.
func (l *Lister) Watch(ctx context.Context) (<-chan []models.Group, error) {
	if l.feed == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "certificate feed is not configured")
	}
	snapshots, err := l.feed.Subscribe(ctx, models.All())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to subscribe to certificates")
	}

	out := make(chan []models.Group)
	if l.metrics != nil {
		l.metrics.SubscriptionOpened()
	}
	go func() {
		defer close(out)
		defer func() {
			if l.metrics != nil {
				l.metrics.SubscriptionClosed()
			}
		}()
		for records := range snapshots {
			select {
			case out <- grouping.Group(records):
			case <-ctx.Done():
				// drain so the feed goroutine can observe ctx and exit
				for range snapshots {
				}
				return
			}
		}
		l.logger.DebugContext(ctx, "certificate listing stream closed")
	}()
	return out, nil
}
