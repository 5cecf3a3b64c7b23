// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ratelimit

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Limiter decides whether one more request for key may proceed.
// Allow never returns an error; backends that can fail decide locally.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// runJanitor calls fn every interval until ctx is done
func runJanitor(ctx context.Context, clock clockwork.Clock, every time.Duration, fn func()) {
	if every <= 0 {
		return
	}
	ticker := clock.NewTicker(every)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				fn()
			}
		}
	}()
}
