//go:build integration

package bucket_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainingcenter/internal/ratelimit/models"
	"trainingcenter/internal/ratelimit/store/bucket"
	"trainingcenter/pkg/testutil/containers"
)

func TestRedisBucketStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	rc := containers.GetManager().GetRedis(t)
	require.NoError(t, rc.FlushAll(ctx))

	replicaA := bucket.NewRedisBucketStore(rc.Client.Client)
	replicaB := bucket.NewRedisBucketStore(rc.Client.Client)
	limit := models.Limit{Requests: 2, Window: 200 * time.Millisecond}
	key := models.BucketKey(models.ClassLookup, "203.0.113.7")

	first, err := replicaA.Allow(ctx, key, limit)
	require.NoError(t, err)
	assert.True(t, first.Allowed)
	assert.Equal(t, 1, first.Remaining)

	second, err := replicaB.Allow(ctx, key, limit)
	require.NoError(t, err)
	assert.True(t, second.Allowed)
	assert.Equal(t, 0, second.Remaining)

	denied, err := replicaA.Allow(ctx, key, limit)
	require.NoError(t, err)
	assert.False(t, denied.Allowed, "replicas share one window")

	time.Sleep(250 * time.Millisecond)
	again, err := replicaB.Allow(ctx, key, limit)
	require.NoError(t, err)
	assert.True(t, again.Allowed)

	require.NoError(t, replicaA.Reset(ctx, key))
	ttl, err := rc.Client.PTTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Negative(t, ttl)
}
