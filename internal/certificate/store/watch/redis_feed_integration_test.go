//go:build integration

package watch_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trainingcenter/internal/certificate/models"
	"trainingcenter/internal/certificate/store"
	"trainingcenter/internal/certificate/store/watch"
	"trainingcenter/pkg/testutil/containers"
)

// TestRedisFeedAcrossReplicas verifies a write on one replica refreshes a
// subscription held by another.
func TestRedisFeedAcrossReplicas(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rc := containers.GetManager().GetRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shared := store.NewInMemory()
	writerFeed := watch.NewRedisFeed(rc.Client.Client, watch.WithChannel("test:"+t.Name()))
	readerFeed := watch.NewRedisFeed(rc.Client.Client, watch.WithChannel("test:"+t.Name()))
	writer := watch.New(shared, writerFeed)
	reader := watch.New(shared, readerFeed)
	defer writer.Close()
	defer reader.Close()

	sub, err := reader.Subscribe(ctx, models.All())
	require.NoError(t, err)
	require.Empty(t, <-sub)

	_, err = writer.Create(ctx, record("S1", 1, 1))
	require.NoError(t, err)

	select {
	case snap := <-sub:
		require.Len(t, snap, 1)
	case <-time.After(5 * time.Second):
		t.Fatal("change not delivered across replicas")
	}
}
