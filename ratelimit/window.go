// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jonboulle/clockwork"
)

const stripeCount = 64

type stripe struct {
	mu   sync.Mutex
	keys map[string][]time.Time
}

// Window is an in-process sliding window limiter. Keys are spread over
// independently locked stripes so unrelated IPs do not contend.
type Window struct {
	max     int
	window  time.Duration
	clock   clockwork.Clock
	stripes [stripeCount]stripe
}

func NewWindow(max int, window time.Duration, clock clockwork.Clock) *Window {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	w := &Window{max: max, window: window, clock: clock}
	for i := range w.stripes {
		w.stripes[i].keys = make(map[string][]time.Time)
	}
	return w
}

func (w *Window) stripeFor(key string) *stripe {
	return &w.stripes[xxhash.Sum64String(key)%stripeCount]
}

// Allow prunes timestamps at or before now-window, then records now if
// fewer than max remain. A denied attempt is not recorded.
func (w *Window) Allow(_ context.Context, key string) bool {
	now := w.clock.Now().Truncate(time.Millisecond)
	cutoff := now.Add(-w.window)

	s := w.stripeFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := prune(s.keys[key], cutoff)
	if len(ts) >= w.max {
		s.keys[key] = ts
		return false
	}
	s.keys[key] = append(ts, now)
	return true
}

// Cleanup drops keys with no timestamps left in the window
func (w *Window) Cleanup() {
	cutoff := w.clock.Now().Add(-w.window)
	for i := range w.stripes {
		s := &w.stripes[i]
		s.mu.Lock()
		for k, ts := range s.keys {
			if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
				delete(s.keys, k)
			}
		}
		s.mu.Unlock()
	}
}

// StartJanitor runs Cleanup periodically. Stop it by cancelling ctx.
func (w *Window) StartJanitor(ctx context.Context, every time.Duration) {
	runJanitor(ctx, w.clock, every, w.Cleanup)
}

// Len reports how many keys are currently tracked
func (w *Window) Len() int {
	n := 0
	for i := range w.stripes {
		s := &w.stripes[i]
		s.mu.Lock()
		n += len(s.keys)
		s.mu.Unlock()
	}
	return n
}

// prune drops the leading timestamps that are not after cutoff.
// Timestamps are appended in order so the survivors are a suffix.
func prune(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	n := copy(ts, ts[i:])
	return ts[:n]
}
