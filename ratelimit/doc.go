// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ratelimit throttles requests per client key.

Three implementations share the Limiter interface:

  - Window: in-process sliding window over timestamps, striped by key hash
  - RedisWindow: the same sliding window held in a Redis sorted set
  - Bucket: x/time/rate token bucket per key

# Sliding Window

On each Allow, timestamps at or before now-window are dropped. If max
remain the request is denied and nothing is recorded; otherwise now is
appended:

	votes := ratelimit.NewWindow(5, time.Hour, clock)
	if !votes.Allow(ctx, ip) { ... 429 ... }

Time resolution is one millisecond. Keys whose newest timestamp has left
the window are removed by Cleanup or by a janitor:

	votes.StartJanitor(ctx, 5*time.Minute)

# Redis

RedisWindow runs one Lua script per call so the check and the insert are
atomic across processes. Each limiter uses its own key prefix:

	votes := ratelimit.NewRedisWindow(rdb, 5, time.Hour, clock, ratelimit.WithKeyPrefix("onevote:vote"))

If Redis is unreachable, Allow logs a warning and returns true.
*/
package ratelimit
