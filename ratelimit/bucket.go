// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// Bucket is a per-key token bucket with idle eviction. It smooths bursts
// rather than capping a window, which suits high-volume event ingestion.
type Bucket struct {
	mu      sync.Mutex
	entries map[string]*bucketEntry
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	clock   clockwork.Clock
}

type bucketEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type BucketOption func(*Bucket)

func WithIdleTTL(d time.Duration) BucketOption {
	return func(b *Bucket) { b.idleTTL = d }
}

func WithClock(clock clockwork.Clock) BucketOption {
	return func(b *Bucket) { b.clock = clock }
}

func NewBucket(perSecond float64, burst int, opts ...BucketOption) *Bucket {
	b := &Bucket{
		entries: make(map[string]*bucketEntry),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		idleTTL: 15 * time.Minute,
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bucket) Allow(_ context.Context, key string) bool {
	now := b.clock.Now()

	b.mu.Lock()
	ent, ok := b.entries[key]
	if !ok {
		ent = &bucketEntry{lim: rate.NewLimiter(b.limit, b.burst)}
		b.entries[key] = ent
	}
	ent.lastSeen = now
	b.mu.Unlock()

	return ent.lim.AllowN(now, 1)
}

func (b *Bucket) Cleanup() {
	cutoff := b.clock.Now().Add(-b.idleTTL)

	b.mu.Lock()
	defer b.mu.Unlock()

	for k, ent := range b.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(b.entries, k)
		}
	}
}

// StartJanitor evicts idle keys periodically. Stop it by cancelling ctx.
func (b *Bucket) StartJanitor(ctx context.Context, every time.Duration) {
	runJanitor(ctx, b.clock, every, b.Cleanup)
}

func (b *Bucket) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
