package bucket

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"trainingcenter/internal/ratelimit/models"
)

// allowScript trims the window, then admits and records the request if the
// count is under the limit. Returns {allowed, remaining, reset_at_ms}.
var allowScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", now - window)
local count = redis.call("ZCARD", KEYS[1])
local allowed = 0
if count < limit then
	redis.call("ZADD", KEYS[1], now, ARGV[4])
	redis.call("PEXPIRE", KEYS[1], window)
	count = count + 1
	allowed = 1
end
local reset = now + window
local oldest = redis.call("ZRANGE", KEYS[1], 0, 0, "WITHSCORES")
if oldest[2] then
	reset = tonumber(oldest[2]) + window
end
local remaining = limit - count
if remaining < 0 then
	remaining = 0
end
return {allowed, remaining, reset}
`)

// RedisBucketStore shares sliding windows across replicas with one sorted
// set per key.
type RedisBucketStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedisBucketStore(client redis.UniversalClient) *RedisBucketStore {
	return &RedisBucketStore{client: client, now: time.Now}
}

func (s *RedisBucketStore) Allow(ctx context.Context, key string, limit models.Limit) (*models.Result, error) {
	now := s.now().UnixMilli()
	res, err := allowScript.Run(ctx, s.client, []string{key},
		now, limit.Window.Milliseconds(), limit.Requests, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit check %s: %w", key, err)
	}
	if len(res) != 3 {
		return nil, fmt.Errorf("rate limit check %s: unexpected reply %v", key, res)
	}
	return &models.Result{
		Allowed:   res[0] == 1,
		Limit:     limit.Requests,
		Remaining: int(res[1]),
		ResetAt:   time.UnixMilli(res[2]),
	}, nil
}

func (s *RedisBucketStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
