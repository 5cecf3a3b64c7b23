// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs completion with method, path, status and duration_ms. Request start is
logged at debug level.

# Timeouts

WithTimeout gives the request context a deadline so store calls made with
it cannot hang:

	middleware.WithTimeout(5*time.Second, handler)

# Admin Endpoints

RequireAPIKey checks X-API-Key in constant time, then rate limits by
client IP:

	middleware.RequireAPIKey(cfg.AdminAPIKey, adminLimiter, handler)

# CORS Middleware

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

Allows GET, POST, OPTIONS with headers Content-Type and X-API-Key.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")
	middleware.ReasonResponse(w, http.StatusForbidden, "already_voted", "message")

Request bodies are limited to MaxBodyBytes:

	var req models.VoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Client IP Extraction

	ip := middleware.GetClientIP(r)

Returns the first X-Forwarded-For entry, else the peer address. The header
is trusted as-is, so deploy behind a proxy that overwrites it.
*/
package middleware
