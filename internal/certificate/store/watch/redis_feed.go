package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel certificate changes are published on.
const DefaultChannel = "certificates:changes"

// RedisFeed shares changes between replicas over Redis pub/sub.
type RedisFeed struct {
	client  redis.UniversalClient
	channel string
	logger  *slog.Logger

	mu     sync.Mutex
	subs   map[*redis.PubSub]struct{}
	closed bool
}

type RedisFeedOption func(*RedisFeed)

func WithChannel(channel string) RedisFeedOption {
	return func(f *RedisFeed) {
		f.channel = channel
	}
}

func WithFeedLogger(logger *slog.Logger) RedisFeedOption {
	return func(f *RedisFeed) {
		f.logger = logger
	}
}

func NewRedisFeed(client redis.UniversalClient, opts ...RedisFeedOption) *RedisFeed {
	f := &RedisFeed{
		client:  client,
		channel: DefaultChannel,
		logger:  slog.Default(),
		subs:    make(map[*redis.PubSub]struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *RedisFeed) Publish(ctx context.Context, c Change) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}
	if err := f.client.Publish(ctx, f.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

func (f *RedisFeed) Listen(ctx context.Context) (<-chan Change, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		ch := make(chan Change)
		close(ch)
		return ch, nil
	}
	f.mu.Unlock()

	ps := f.client.Subscribe(ctx, f.channel)
	// Wait for the subscription confirmation so no publish after Listen
	// returns is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", f.channel, err)
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		_ = ps.Close()
		ch := make(chan Change)
		close(ch)
		return ch, nil
	}
	f.subs[ps] = struct{}{}
	f.mu.Unlock()

	out := make(chan Change, 1)
	msgs := ps.Channel()
	go func() {
		defer close(out)
		defer f.release(ps)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var c Change
				if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
					f.logger.WarnContext(ctx, "discarding malformed certificate change",
						"channel", f.channel,
						"error", err,
					)
					continue
				}
				select {
				case out <- c:
				default:
				}
			}
		}
	}()
	return out, nil
}

// Close ends every subscription opened by Listen.
func (f *RedisFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for ps := range f.subs {
		delete(f.subs, ps)
		_ = ps.Close()
	}
	return nil
}

func (f *RedisFeed) release(ps *redis.PubSub) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[ps]; ok {
		delete(f.subs, ps)
		_ = ps.Close()
	}
}
