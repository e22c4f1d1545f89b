package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript trims the window, then admits the request if there is room.
// Returns {allowed, count, resetAtMillis}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call("ZREMRANGEBYSCORE", key, "-inf", now - window)
local count = redis.call("ZCARD", key)
local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
if count >= limit then
	local reset = now + window
	if oldest[2] then reset = tonumber(oldest[2]) + window end
	return {0, count, reset}
end
redis.call("ZADD", key, now, ARGV[4])
redis.call("PEXPIRE", key, window)
local first = now
if oldest[2] then first = tonumber(oldest[2]) end
return {1, count + 1, first + window}
`)

// RedisStore shares sliding windows across instances using one sorted set per key.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

func (s *RedisStore) Allow(ctx context.Context, key string, limit Limit) (*Result, error) {
	now := s.now()
	res, err := slidingWindowScript.Run(ctx, s.client, []string{s.prefix + key},
		now.UnixMilli(), limit.Window.Milliseconds(), limit.Requests, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("check rate limit %s: %w", key, err)
	}
	if len(res) != 3 {
		return nil, fmt.Errorf("check rate limit %s: unexpected reply length %d", key, len(res))
	}

	resetAt := time.UnixMilli(res[2])
	out := &Result{Allowed: res[0] == 1, Limit: limit.Requests, ResetAt: resetAt}
	if out.Allowed {
		out.Remaining = limit.Requests - int(res[1])
	} else {
		out.RetryAfter = resetAt.Sub(now)
	}
	return out, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("reset rate limit %s: %w", key, err)
	}
	return nil
}
