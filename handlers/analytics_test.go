// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielhkuo/onevote/models"
	"github.com/danielhkuo/onevote/ratelimit"
	"github.com/danielhkuo/onevote/testutil"
)

func TestLogEvent(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		expectedStatus int
	}{
		{
			name:           "client event",
			requestBody:    models.AnalyticsEventRequest{Type: models.EventPollOpened, SessionID: "s1", DeviceID: "d1"},
			expectedStatus: http.StatusOK,
		},
		{
			name: "with context",
			requestBody: models.AnalyticsEventRequest{
				Type:    models.EventUserInfoModalTimeout,
				Context: map[string]any{"elapsedMs": 30000},
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "unknown type",
			requestBody:    models.AnalyticsEventRequest{Type: "page_scrolled"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "server-only type",
			requestBody:    models.AnalyticsEventRequest{Type: models.EventVoteRejected},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing type",
			requestBody:    models.AnalyticsEventRequest{SessionID: "s1"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed session",
			requestBody:    models.AnalyticsEventRequest{Type: models.EventPollOpened, SessionID: strings.Repeat("x", 129)},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed device",
			requestBody:    models.AnalyticsEventRequest{Type: models.EventPollOpened, DeviceID: "d/1"},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := &recordingEvents{}
			handler := NewAnalyticsHandler(events, nil)

			req := testutil.MakeRequest("POST", "/analytics/log", tt.requestBody, map[string]string{"X-Forwarded-For": "198.51.100.9"})
			w := httptest.NewRecorder()
			handler.LogEvent(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)

			got := events.all()
			if tt.expectedStatus != http.StatusOK {
				if len(got) != 0 {
					t.Errorf("Rejected request logged events: %+v", got)
				}
				return
			}

			want := tt.requestBody.(models.AnalyticsEventRequest)
			if len(got) != 1 {
				t.Fatalf("Expected 1 event, got %d", len(got))
			}
			if got[0].Type != want.Type || got[0].SessionID != want.SessionID || got[0].DeviceID != want.DeviceID {
				t.Errorf("Logged %+v, want %+v", got[0], want)
			}
			if got[0].IP != "198.51.100.9" {
				t.Errorf("Expected client IP on event, got %q", got[0].IP)
			}
		})
	}
}

func TestLogEventTooManyContextKeys(t *testing.T) {
	handler := NewAnalyticsHandler(&recordingEvents{}, nil)

	evCtx := make(map[string]any)
	for i := 0; i <= maxContextKeys; i++ {
		evCtx[strings.Repeat("k", i+1)] = i
	}
	req := testutil.MakeRequest("POST", "/analytics/log", models.AnalyticsEventRequest{Type: models.EventPollOpened, Context: evCtx}, nil)
	w := httptest.NewRecorder()
	handler.LogEvent(w, req)

	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestLogEventThrottled(t *testing.T) {
	clock := testutil.NewTestClock()
	events := &recordingEvents{}
	handler := NewAnalyticsHandler(events, ratelimit.NewBucket(1, 2, ratelimit.WithClock(clock)))

	body := models.AnalyticsEventRequest{Type: models.EventPollOpened}
	send := func(ip string) int {
		w := httptest.NewRecorder()
		handler.LogEvent(w, testutil.MakeRequest("POST", "/analytics/log", body, map[string]string{"X-Forwarded-For": ip}))
		return w.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("10.1.1.1"); code != http.StatusOK {
			t.Fatalf("Request %d: expected 200, got %d", i+1, code)
		}
	}
	if code := send("10.1.1.1"); code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 after burst, got %d", code)
	}
	if code := send("10.1.1.2"); code != http.StatusOK {
		t.Errorf("Other client throttled: %d", code)
	}

	if n := len(events.all()); n != 3 {
		t.Errorf("Expected 3 logged events, got %d", n)
	}
}
