// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/onevote/admission"
	"github.com/danielhkuo/onevote/middleware"
	"github.com/danielhkuo/onevote/models"
	"github.com/danielhkuo/onevote/ratelimit"
)

// maxContextKeys bounds the free-form context of a client event
const maxContextKeys = 16

type AnalyticsHandler struct {
	events  EventLogger
	limiter ratelimit.Limiter
}

// NewAnalyticsHandler creates the event intake. A nil limiter disables throttling.
func NewAnalyticsHandler(events EventLogger, limiter ratelimit.Limiter) *AnalyticsHandler {
	return &AnalyticsHandler{events: events, limiter: limiter}
}

// LogEvent handles POST /analytics/log
func (h *AnalyticsHandler) LogEvent(w http.ResponseWriter, r *http.Request) {
	ip := middleware.GetClientIP(r)

	if h.limiter != nil && !h.limiter.Allow(r.Context(), ip) {
		middleware.ErrorResponse(w, http.StatusTooManyRequests, "Rate limit exceeded")
		return
	}

	var req models.AnalyticsEventRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if !models.IsClientEvent(req.Type) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Unknown event type")
		return
	}
	if req.SessionID != "" && !admission.ValidIdentifier(req.SessionID) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "sessionId is malformed")
		return
	}
	if req.DeviceID != "" && !admission.ValidIdentifier(req.DeviceID) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "deviceId is malformed")
		return
	}
	if len(req.Context) > maxContextKeys {
		middleware.ErrorResponse(w, http.StatusBadRequest, "context has too many keys")
		return
	}

	h.events.LogEvent(req.Type, req.DeviceID, req.SessionID, ip, req.Context)

	middleware.JSONResponse(w, http.StatusOK, models.OKResponse{OK: true})
}
