// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ratelimit

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript keeps one sorted set per key scored by request time
// in milliseconds. Returns 1 when the request was recorded.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= limit then
	return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`)

// RedisWindow is a sliding window limiter whose state lives in Redis, so
// every process behind a load balancer shares one budget per key.
type RedisWindow struct {
	rdb    redis.UniversalClient
	clock  clockwork.Clock
	prefix string
	max    int
	window time.Duration
}

type RedisOption func(*RedisWindow)

func WithKeyPrefix(prefix string) RedisOption {
	return func(r *RedisWindow) { r.prefix = strings.Trim(prefix, ":") }
}

func NewRedisWindow(rdb redis.UniversalClient, max int, window time.Duration, clock clockwork.Clock, opts ...RedisOption) *RedisWindow {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	r := &RedisWindow{
		rdb:    rdb,
		clock:  clock,
		prefix: "onevote:ratelimit",
		max:    max,
		window: window,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Allow runs the window script atomically for key. If Redis cannot be
// reached the request is let through and a warning is logged.
func (r *RedisWindow) Allow(ctx context.Context, key string) bool {
	res, err := slidingWindowScript.Run(ctx, r.rdb,
		[]string{r.prefix + ":" + key},
		r.clock.Now().UnixMilli(),
		r.window.Milliseconds(),
		r.max,
		uuid.NewString(),
	).Int()
	if err != nil {
		slog.Warn("rate limiter unavailable, allowing request", "prefix", r.prefix, "error", err)
		return true
	}
	return res == 1
}
