package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainingcenter/internal/platform/config"
)

func TestOptions(t *testing.T) {
	t.Run("applies configured pool and timeouts", func(t *testing.T) {
		opts, err := Options(config.RedisConfig{
			URL:          "redis://cache.internal:6380/2",
			PoolSize:     7,
			MinIdleConns: 3,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: 1500 * time.Millisecond,
		})
		require.NoError(t, err)
		assert.Equal(t, "cache.internal:6380", opts.Addr)
		assert.Equal(t, 2, opts.DB)
		assert.Equal(t, 7, opts.PoolSize)
		assert.Equal(t, 3, opts.MinIdleConns)
		assert.Equal(t, 2*time.Second, opts.DialTimeout)
		assert.Equal(t, time.Second, opts.ReadTimeout)
		assert.Equal(t, 1500*time.Millisecond, opts.WriteTimeout)
	})

	t.Run("zero values keep url settings", func(t *testing.T) {
		opts, err := Options(config.RedisConfig{URL: "redis://localhost:6379?pool_size=4"})
		require.NoError(t, err)
		assert.Equal(t, 4, opts.PoolSize)
	})

	t.Run("rejects malformed url", func(t *testing.T) {
		_, err := Options(config.RedisConfig{URL: "http://localhost:6379"})
		assert.ErrorContains(t, err, "parse redis URL")
	})
}

func TestNewWithoutURL(t *testing.T) {
	c, err := New(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, c)
}
