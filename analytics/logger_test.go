// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/onevote/models"
	"github.com/jonboulle/clockwork"
)

type memSink struct {
	mu     sync.Mutex
	events []models.AnalyticsEvent
	err    error
	block  chan struct{}
}

func (m *memSink) InsertEvent(ctx context.Context, ev models.AnalyticsEvent) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *memSink) stored() []models.AnalyticsEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.AnalyticsEvent(nil), m.events...)
}

func TestLoggerWritesEvents(t *testing.T) {
	sink := &memSink{}
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewLogger(sink, WithClock(clockwork.NewFakeClockAt(at)))

	l.LogEvent(models.EventPollOpened, "dev-1", "", "10.0.0.1", nil)
	l.LogEvent(models.EventVoteRejected, "dev-1", "s1", "10.0.0.1", map[string]any{"reason": "already_voted"})

	if err := l.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	got := sink.stored()
	if len(got) != 2 {
		t.Fatalf("stored %d events, want 2", len(got))
	}
	if got[0].Type != models.EventPollOpened || got[1].Context["reason"] != "already_voted" {
		t.Errorf("stored events = %+v", got)
	}
	if !got[0].CreatedAt.Equal(at) {
		t.Errorf("CreatedAt = %v, want %v", got[0].CreatedAt, at)
	}
}

func TestLoggerDropsWhenFull(t *testing.T) {
	sink := &memSink{block: make(chan struct{})}
	l := NewLogger(sink, WithBuffer(2))

	// writer takes at most one event and blocks on it; the buffer holds two more
	for i := 0; i < 10; i++ {
		l.LogEvent(models.EventPollOpened, "", "", "", nil)
	}

	if d := l.Dropped(); d < 7 {
		t.Errorf("Dropped() = %d, want at least 7", d)
	}

	close(sink.block)
	if err := l.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got := int64(len(sink.stored())) + l.Dropped(); got != 10 {
		t.Errorf("stored+dropped = %d, want 10", got)
	}
}

func TestLoggerSwallowsSinkErrors(t *testing.T) {
	sink := &memSink{err: errors.New("disk full")}
	l := NewLogger(sink)

	l.LogEvent(models.EventPollOpened, "", "", "", nil)
	if err := l.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if l.Failed() != 1 {
		t.Errorf("Failed() = %d, want 1", l.Failed())
	}
}

func TestLoggerAfterClose(t *testing.T) {
	sink := &memSink{}
	l := NewLogger(sink)
	l.Close(context.Background())

	l.LogEvent(models.EventPollOpened, "", "", "", nil)
	if l.Dropped() != 1 {
		t.Errorf("Dropped() after close = %d, want 1", l.Dropped())
	}
	if err := l.Close(context.Background()); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestLoggerCloseRespectsContext(t *testing.T) {
	sink := &memSink{block: make(chan struct{})}
	defer close(sink.block)
	l := NewLogger(sink)
	l.LogEvent(models.EventPollOpened, "", "", "", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Close() error = %v, want deadline exceeded", err)
	}
}
