// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danielhkuo/onevote/models"
	"github.com/jonboulle/clockwork"
)

// Sink persists one event
type Sink interface {
	InsertEvent(ctx context.Context, ev models.AnalyticsEvent) error
}

// Logger writes funnel events in the background. LogEvent never blocks
// the caller: when the buffer is full the event is dropped.
type Logger struct {
	sink    Sink
	clock   clockwork.Clock
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	events chan models.AnalyticsEvent
	done   chan struct{}

	dropped atomic.Int64
	failed  atomic.Int64
}

type Option func(*Logger)

func WithBuffer(n int) Option {
	return func(l *Logger) { l.events = make(chan models.AnalyticsEvent, n) }
}

func WithClock(clock clockwork.Clock) Option {
	return func(l *Logger) { l.clock = clock }
}

// WithWriteTimeout bounds each insert
func WithWriteTimeout(d time.Duration) Option {
	return func(l *Logger) { l.timeout = d }
}

// NewLogger starts the background writer. Call Close to flush and stop it.
func NewLogger(sink Sink, opts ...Option) *Logger {
	l := &Logger{
		sink:    sink,
		clock:   clockwork.NewRealClock(),
		timeout: 3 * time.Second,
		events:  make(chan models.AnalyticsEvent, 1024),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	go l.run()
	return l
}

// LogEvent queues an event. Empty ids are stored as absent.
func (l *Logger) LogEvent(eventType, deviceID, sessionID, ip string, evCtx map[string]any) {
	l.Log(models.AnalyticsEvent{
		Type:      eventType,
		DeviceID:  deviceID,
		SessionID: sessionID,
		IP:        ip,
		Context:   evCtx,
	})
}

func (l *Logger) Log(ev models.AnalyticsEvent) {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = l.clock.Now().UTC()
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.dropped.Add(1)
		return
	}
	select {
	case l.events <- ev:
	default:
		l.dropped.Add(1)
	}
}

func (l *Logger) run() {
	defer close(l.done)
	for ev := range l.events {
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		if err := l.sink.InsertEvent(ctx, ev); err != nil {
			l.failed.Add(1)
			slog.Warn("failed to store analytics event", "type", ev.Type, "error", err)
		}
		cancel()
	}
}

// Close stops accepting events and waits for queued ones to be written
// or for ctx to end, whichever comes first.
func (l *Logger) Close(ctx context.Context) error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.events)
	}
	l.mu.Unlock()

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dropped counts events discarded because the buffer was full or closed
func (l *Logger) Dropped() int64 {
	return l.dropped.Load()
}

// Failed counts events the sink rejected
func (l *Logger) Failed() int64 {
	return l.failed.Load()
}
