package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex(t *testing.T) {
	t.Run("serializes holders of one key", func(t *testing.T) {
		m := NewKeyedMutex()
		var inside, maxInside atomic.Int32
		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				release, err := m.Acquire(context.Background(), "pair:S:C")
				if !assert.NoError(t, err) {
					return
				}
				n := inside.Add(1)
				for {
					cur := maxInside.Load()
					if n <= cur || maxInside.CompareAndSwap(cur, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
				release()
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), maxInside.Load())
		assert.Zero(t, m.held(), "entries are dropped once released")
	})

	t.Run("different keys do not block each other", func(t *testing.T) {
		m := NewKeyedMutex()
		releaseA, err := m.Acquire(context.Background(), "a")
		require.NoError(t, err)
		defer releaseA()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		releaseB, err := m.Acquire(ctx, "b")
		require.NoError(t, err)
		releaseB()
	})

	t.Run("gives up when the context ends", func(t *testing.T) {
		m := NewKeyedMutex()
		release, err := m.Acquire(context.Background(), "k")
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = m.Acquire(ctx, "k")
		assert.ErrorIs(t, err, ErrNotAcquired)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		release()
		release() // idempotent
		assert.Zero(t, m.held())
	})
}
