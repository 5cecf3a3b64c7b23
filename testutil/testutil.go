// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielhkuo/onevote/auth"
	"github.com/danielhkuo/onevote/cliparse"
	"github.com/danielhkuo/onevote/db"
	"github.com/danielhkuo/onevote/models"
	"github.com/jonboulle/clockwork"
)

// TestSecret signs vote tokens in tests
const TestSecret = "test-token-secret-0123456789"

// TestAPIKey guards the admin endpoints in tests
const TestAPIKey = "test-admin-key"

// SetupTestStore opens a fresh SQLite store in a temp directory with the
// full schema. It is closed when the test ends.
func SetupTestStore(t *testing.T) *db.SQLStore {
	t.Helper()

	store, err := db.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "onevote.db"))
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:            3318,
		DatabaseType:    db.TypeSQLite,
		TokenSecret:     TestSecret,
		TokenTTL:        2 * time.Minute,
		VoteRateLimit:   5,
		VoteRateWindow:  time.Hour,
		AdminRateLimit:  10,
		AdminRateWindow: time.Minute,
		MaxVotesPerIP:   20,
		AdminAPIKey:     TestAPIKey,
		RequestTimeout:  5 * time.Second,
	}
}

// NewTestClock returns a fake clock at a fixed instant
func NewTestClock() *clockwork.FakeClock {
	return clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
}

// NewTestIssuer builds a token issuer over TestSecret
func NewTestIssuer(t *testing.T, clock clockwork.Clock) *auth.TokenIssuer {
	t.Helper()

	issuer, err := auth.NewTokenIssuer([]byte(TestSecret), 2*time.Minute, clock)
	if err != nil {
		t.Fatalf("Failed to create token issuer: %v", err)
	}
	return issuer
}

// IssueTestToken signs a token for the given profile
func IssueTestToken(t *testing.T, issuer *auth.TokenIssuer, sessionID, gender, age string) string {
	t.Helper()

	token, _, err := issuer.Issue(sessionID, gender, age)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	return token
}

// InsertTestVote stores a vote directly, bypassing admission
func InsertTestVote(t *testing.T, store db.Store, sessionID, deviceID, ip, gender string, age int, answer string) {
	t.Helper()

	id, _ := auth.GenerateID(16)
	err := store.InsertUnique(context.Background(), models.VoteRecord{
		ID:        id,
		SessionID: sessionID,
		DeviceID:  deviceID,
		IP:        ip,
		Gender:    gender,
		Age:       age,
		Answer:    answer,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Failed to insert test vote: %v", err)
	}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}

// AssertReason checks the status and the reason field of an error response
func AssertReason(t *testing.T, w *httptest.ResponseRecorder, status int, reason string) {
	t.Helper()
	AssertStatus(t, w, status)

	var resp models.ErrorResponse
	AssertJSON(t, w, &resp)
	if resp.Reason != reason {
		t.Errorf("Expected reason %q, got %q (message %q)", reason, resp.Reason, resp.Message)
	}
}
