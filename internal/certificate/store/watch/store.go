package watch

import (
	"context"
	"log/slog"

	"trainingcenter/internal/certificate/models"
	id "trainingcenter/pkg/domain"
)

// Base is the store being decorated.
type Base interface {
	Create(ctx context.Context, c *models.Certificate) (id.CertificateID, error)
	Update(ctx context.Context, certID id.CertificateID, f models.MutableFields) error
	FindByID(ctx context.Context, certID id.CertificateID) (*models.Certificate, error)
	FindByField(ctx context.Context, field models.Field, value string) ([]*models.Certificate, error)
	ListAll(ctx context.Context) ([]*models.Certificate, error)
	Delete(ctx context.Context, certID id.CertificateID) error
}

// Store publishes a change after every successful write and serves query
// subscriptions. Reads pass through to the base store.
type Store struct {
	Base
	feed   Feed
	logger *slog.Logger
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func New(base Base, feed Feed, opts ...Option) *Store {
	s := &Store{
		Base:   base,
		feed:   feed,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Create(ctx context.Context, c *models.Certificate) (id.CertificateID, error) {
	certID, err := s.Base.Create(ctx, c)
	if err != nil {
		return "", err
	}
	s.publish(ctx, Change{Op: OpCreate, ID: certID})
	return certID, nil
}

func (s *Store) Update(ctx context.Context, certID id.CertificateID, f models.MutableFields) error {
	if err := s.Base.Update(ctx, certID, f); err != nil {
		return err
	}
	s.publish(ctx, Change{Op: OpUpdate, ID: certID})
	return nil
}

func (s *Store) Delete(ctx context.Context, certID id.CertificateID) error {
	if err := s.Base.Delete(ctx, certID); err != nil {
		return err
	}
	s.publish(ctx, Change{Op: OpDelete, ID: certID})
	return nil
}

// Subscribe returns a stream of full result sets for q. The current result is
// delivered first, then a fresh one after every change. A consumer that falls
// behind receives only the newest result. The stream closes when ctx is done
// or the feed is closed.
func (s *Store) Subscribe(ctx context.Context, q models.Query) (<-chan []*models.Certificate, error) {
	ctx, cancel := context.WithCancel(ctx)
	changes, err := s.feed.Listen(ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	initial, err := s.run(ctx, q)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan []*models.Certificate, 1)
	out <- initial
	go func() {
		defer close(out)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				snapshot, err := s.run(ctx, q)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					s.logger.WarnContext(ctx, "certificate subscription query failed",
						"field", string(q.Field),
						"error", err,
					)
					continue
				}
				replace(out, snapshot)
			}
		}
	}()
	return out, nil
}

// Close closes the feed, ending every open subscription.
func (s *Store) Close() error {
	return s.feed.Close()
}

func (s *Store) run(ctx context.Context, q models.Query) ([]*models.Certificate, error) {
	if q.IsAll() {
		return s.Base.ListAll(ctx)
	}
	return s.Base.FindByField(ctx, q.Field, q.Value)
}

func (s *Store) publish(ctx context.Context, c Change) {
	if err := s.feed.Publish(ctx, c); err != nil {
		s.logger.WarnContext(ctx, "failed to publish certificate change",
			"op", string(c.Op),
			"certificate_id", c.ID.String(),
			"error", err,
		)
	}
}

// replace sends v, discarding an unread older value. out must have capacity
// one and a single sender.
func replace[T any](out chan T, v T) {
	select {
	case out <- v:
		return
	default:
	}
	select {
	case <-out:
	default:
	}
	out <- v
}
