// Package watch adds push-based reads to a certificate store. Writes through
// the decorator publish a change on a Feed; subscribers re-run their query on
// every change and receive the full refreshed result.
package watch

import (
	"context"
	"sync"

	id "trainingcenter/pkg/domain"
)

// Op is the kind of write that produced a change.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change announces that a record was written.
type Change struct {
	Op Op               `json:"op"`
	ID id.CertificateID `json:"id"`
}

// Feed carries change notifications between writers and subscribers.
// Delivery is lossy and coalescing: a listener that is behind sees at least
// one change after the last write, not every change.
type Feed interface {
	Publish(ctx context.Context, c Change) error
	// Listen returns a channel that receives changes until ctx is done or the
	// feed is closed, after which it is closed.
	Listen(ctx context.Context) (<-chan Change, error)
	Close() error
}

// LocalFeed fans changes out to listeners in this process.
type LocalFeed struct {
	mu        sync.Mutex
	listeners map[chan Change]struct{}
	closed    bool
	done      chan struct{}
}

func NewLocalFeed() *LocalFeed {
	return &LocalFeed{
		listeners: make(map[chan Change]struct{}),
		done:      make(chan struct{}),
	}
}

func (f *LocalFeed) Publish(_ context.Context, c Change) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.listeners {
		select {
		case ch <- c:
		default:
			// listener already has a pending change
		}
	}
	return nil
}

func (f *LocalFeed) Listen(ctx context.Context) (<-chan Change, error) {
	ch := make(chan Change, 1)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(ch)
		return ch, nil
	}
	f.listeners[ch] = struct{}{}
	f.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			f.remove(ch)
		case <-f.done:
		}
	}()
	return ch, nil
}

// Close closes every listener channel. Later Listen calls return a closed channel.
func (f *LocalFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	close(f.done)
	for ch := range f.listeners {
		delete(f.listeners, ch)
		close(ch)
	}
	return nil
}

func (f *LocalFeed) remove(ch chan Change) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.listeners[ch]; ok {
		delete(f.listeners, ch)
		close(ch)
	}
}
