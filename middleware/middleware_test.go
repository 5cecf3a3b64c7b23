// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/onevote/models"
)

func TestWithLogging_PreservesResponse(t *testing.T) {
	testCases := []struct {
		name       string
		statusCode int
		body       string
	}{
		{"OK", http.StatusOK, "ok"},
		{"BadRequest", http.StatusBadRequest, `{"error":"bad request"}`},
		{"TooManyRequests", http.StatusTooManyRequests, "slow down"},
		{"InternalError", http.StatusInternalServerError, "error"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := WithLogging(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
				w.Write([]byte(tc.body))
			})

			req := httptest.NewRequest("POST", "/vote", nil)
			w := httptest.NewRecorder()

			handler(w, req)

			if w.Code != tc.statusCode {
				t.Errorf("Expected status %d, got %d", tc.statusCode, w.Code)
			}
			if w.Body.String() != tc.body {
				t.Errorf("Expected body '%s', got '%s'", tc.body, w.Body.String())
			}
		})
	}
}

func TestWithTimeout(t *testing.T) {
	var deadline time.Time
	var ok bool
	handler := WithTimeout(50*time.Millisecond, func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	})

	before := time.Now()
	handler(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if !ok {
		t.Fatal("Expected request context to carry a deadline")
	}
	if deadline.Before(before) || deadline.After(before.Add(time.Second)) {
		t.Errorf("Unexpected deadline %v", deadline)
	}

	// zero disables the wrapper
	WithTimeout(0, func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Deadline(); ok {
			t.Error("Expected no deadline when timeout is zero")
		}
	})(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
}

type countingLimiter struct {
	allow bool
	keys  []string
}

func (c *countingLimiter) Allow(_ context.Context, key string) bool {
	c.keys = append(c.keys, key)
	return c.allow
}

func TestRequireAPIKey(t *testing.T) {
	testCases := []struct {
		name       string
		expected   string
		header     string
		allow      bool
		wantStatus int
		wantLimit  bool
	}{
		{"valid key", "admin-secret", "admin-secret", true, http.StatusOK, true},
		{"wrong key", "admin-secret", "nope", true, http.StatusUnauthorized, false},
		{"missing key", "admin-secret", "", true, http.StatusUnauthorized, false},
		{"endpoint disabled", "", "anything", true, http.StatusUnauthorized, false},
		{"rate limited", "admin-secret", "admin-secret", false, http.StatusTooManyRequests, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			limiter := &countingLimiter{allow: tc.allow}
			handler := RequireAPIKey(tc.expected, limiter, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest("GET", "/analytics/summary", nil)
			req.RemoteAddr = "198.51.100.7:4321"
			if tc.header != "" {
				req.Header.Set("X-API-Key", tc.header)
			}
			w := httptest.NewRecorder()
			handler(w, req)

			if w.Code != tc.wantStatus {
				t.Errorf("Expected status %d, got %d", tc.wantStatus, w.Code)
			}
			if got := len(limiter.keys) > 0; got != tc.wantLimit {
				t.Errorf("Limiter consulted = %v, want %v", got, tc.wantLimit)
			}
			if tc.wantLimit && limiter.keys[0] != "198.51.100.7" {
				t.Errorf("Limiter key = %q, want client IP", limiter.keys[0])
			}
		})
	}
}

func TestJSONResponse(t *testing.T) {
	testCases := []struct {
		name       string
		statusCode int
		data       interface{}
		expected   string
	}{
		{
			name:       "simple struct",
			statusCode: http.StatusOK,
			data:       models.OKResponse{OK: true},
			expected:   `{"ok":true}`,
		},
		{
			name:       "token response",
			statusCode: http.StatusOK,
			data:       models.TokenResponse{Token: "abc.def.ghi", ExpiresIn: 120},
			expected:   `{"token":"abc.def.ghi","expires_in":120}`,
		},
		{
			name:       "error response",
			statusCode: http.StatusBadRequest,
			data:       models.ErrorResponse{Error: "Bad Request", Message: "missing field"},
			expected:   `{"error":"Bad Request","message":"missing field"}`,
		},
		{
			name:       "array data",
			statusCode: http.StatusOK,
			data:       []string{"a", "b", "c"},
			expected:   `["a","b","c"]`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			JSONResponse(w, tc.statusCode, tc.data)

			if w.Code != tc.statusCode {
				t.Errorf("Expected status %d, got %d", tc.statusCode, w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Expected Content-Type 'application/json', got '%s'", ct)
			}

			body := strings.TrimSpace(w.Body.String())
			if body != tc.expected {
				t.Errorf("Expected body '%s', got '%s'", tc.expected, body)
			}
		})
	}
}

func TestErrorResponse(t *testing.T) {
	testCases := []struct {
		name          string
		statusCode    int
		message       string
		expectedError string
	}{
		{"bad request", http.StatusBadRequest, "age is required", "Bad Request"},
		{"unauthorized", http.StatusUnauthorized, "invalid api key", "Unauthorized"},
		{"too many requests", http.StatusTooManyRequests, "slow down", "Too Many Requests"},
		{"internal error", http.StatusInternalServerError, "database error", "Internal Server Error"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			ErrorResponse(w, tc.statusCode, tc.message)

			if w.Code != tc.statusCode {
				t.Errorf("Expected status %d, got %d", tc.statusCode, w.Code)
			}

			var resp models.ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode error response: %v", err)
			}
			if resp.Error != tc.expectedError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectedError, resp.Error)
			}
			if resp.Message != tc.message {
				t.Errorf("Expected message '%s', got '%s'", tc.message, resp.Message)
			}
			if resp.Reason != "" {
				t.Errorf("Expected no reason, got '%s'", resp.Reason)
			}
		})
	}
}

func TestReasonResponse(t *testing.T) {
	w := httptest.NewRecorder()
	ReasonResponse(w, http.StatusForbidden, "already_voted", "This device has already voted")

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", w.Code)
	}
	want := `{"error":"Forbidden","message":"This device has already voted","reason":"already_voted"}`
	if body := strings.TrimSpace(w.Body.String()); body != want {
		t.Errorf("Expected body '%s', got '%s'", want, body)
	}
}

func TestParseJSONBody(t *testing.T) {
	t.Run("valid JSON", func(t *testing.T) {
		body := `{"sessionId":"s1","gender":"male","age":"30"}`
		req := httptest.NewRequest("POST", "/", strings.NewReader(body))

		var parsed models.TokenRequest
		if err := ParseJSONBody(req, &parsed); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if parsed.SessionID != "s1" || parsed.Age != "30" {
			t.Errorf("Unexpected parse result: %+v", parsed)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{invalid json}`))

		var parsed models.TokenRequest
		if err := ParseJSONBody(req, &parsed); err == nil {
			t.Error("Expected error for invalid JSON")
		}
	})

	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(""))

		var parsed models.TokenRequest
		if err := ParseJSONBody(req, &parsed); err == nil {
			t.Error("Expected error for empty body")
		}
	})

	t.Run("wrong type", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"age":"thirty"}`))

		var parsed models.VoteRequest
		if err := ParseJSONBody(req, &parsed); err == nil {
			t.Error("Expected error for string age in vote request")
		}
	})

	t.Run("oversized body", func(t *testing.T) {
		body := `{"sessionId":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
		req := httptest.NewRequest("POST", "/", strings.NewReader(body))

		var parsed models.TokenRequest
		if err := ParseJSONBody(req, &parsed); err == nil {
			t.Error("Expected error for body over the size limit")
		}
	})

	t.Run("extra fields ignored", func(t *testing.T) {
		body := `{"sessionId":"s1","unknown_field":"ignored"}`
		req := httptest.NewRequest("POST", "/", strings.NewReader(body))

		var parsed models.TokenRequest
		if err := ParseJSONBody(req, &parsed); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if parsed.SessionID != "s1" {
			t.Errorf("Expected sessionId 's1', got '%s'", parsed.SessionID)
		}
	})
}

func TestCORS(t *testing.T) {
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("handled"))
	})

	corsHandler := CORS(nextHandler)

	t.Run("preflight OPTIONS request", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/vote", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()

		corsHandler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
		if w.Body.String() != "" {
			t.Errorf("Expected empty body for preflight, got '%s'", w.Body.String())
		}
		if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
			t.Error("Expected Access-Control-Allow-Origin to match request origin")
		}
		if !strings.Contains(w.Header().Get("Access-Control-Allow-Headers"), "X-API-Key") {
			t.Error("Expected X-API-Key in allowed headers")
		}
	})

	t.Run("regular request with origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/poll/stats", nil)
		req.Header.Set("Origin", "https://example.com")
		w := httptest.NewRecorder()

		corsHandler.ServeHTTP(w, req)

		if w.Body.String() != "handled" {
			t.Error("Expected next handler to be called")
		}
		if w.Header().Get("Access-Control-Allow-Origin") != "https://example.com" {
			t.Error("Expected Access-Control-Allow-Origin to reflect request origin")
		}
	})

	t.Run("request without origin defaults to wildcard", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/poll/stats", nil)
		w := httptest.NewRecorder()

		corsHandler.ServeHTTP(w, req)

		if w.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Error("Expected Access-Control-Allow-Origin to default to '*'")
		}
	})
}

func TestGetClientIP(t *testing.T) {
	testCases := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		expectedIP string
	}{
		{
			name:       "X-Forwarded-For single IP",
			headers:    map[string]string{"X-Forwarded-For": "192.168.1.100"},
			remoteAddr: "10.0.0.1:12345",
			expectedIP: "192.168.1.100",
		},
		{
			name:       "X-Forwarded-For chained IPs",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.195, 70.41.3.18, 150.172.238.178"},
			remoteAddr: "127.0.0.1:12345",
			expectedIP: "203.0.113.195",
		},
		{
			name:       "X-Forwarded-For with leading space",
			headers:    map[string]string{"X-Forwarded-For": "  198.51.100.9 ,10.0.0.1"},
			remoteAddr: "127.0.0.1:12345",
			expectedIP: "198.51.100.9",
		},
		{
			name:       "X-Real-IP is ignored",
			headers:    map[string]string{"X-Real-IP": "203.0.113.50"},
			remoteAddr: "10.0.0.1:12345",
			expectedIP: "10.0.0.1",
		},
		{
			name:       "RemoteAddr with port",
			headers:    map[string]string{},
			remoteAddr: "192.168.1.50:54321",
			expectedIP: "192.168.1.50",
		},
		{
			name:       "RemoteAddr without port",
			headers:    map[string]string{},
			remoteAddr: "192.168.1.50",
			expectedIP: "192.168.1.50",
		},
		{
			name:       "IPv6 RemoteAddr with port",
			headers:    map[string]string{},
			remoteAddr: "[::1]:12345",
			expectedIP: "::1",
		},
		{
			name:       "IPv6 in X-Forwarded-For",
			headers:    map[string]string{"X-Forwarded-For": "2001:db8::1"},
			remoteAddr: "127.0.0.1:12345",
			expectedIP: "2001:db8::1",
		},
		{
			name:       "blank X-Forwarded-For entry falls through to RemoteAddr",
			headers:    map[string]string{"X-Forwarded-For": " , 10.0.0.9"},
			remoteAddr: "10.0.0.5:8080",
			expectedIP: "10.0.0.5",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tc.remoteAddr

			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}

			if result := GetClientIP(req); result != tc.expectedIP {
				t.Errorf("Expected IP '%s', got '%s'", tc.expectedIP, result)
			}
		})
	}
}
