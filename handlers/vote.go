// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/onevote/admission"
	"github.com/danielhkuo/onevote/middleware"
	"github.com/danielhkuo/onevote/models"
)

// Admitter decides vote submissions
type Admitter interface {
	Admit(ctx context.Context, req admission.Request) admission.Decision
}

// EventLogger records funnel events without blocking
type EventLogger interface {
	LogEvent(eventType, deviceID, sessionID, ip string, evCtx map[string]any)
}

type VoteHandler struct {
	admitter Admitter
	events   EventLogger
}

func NewVoteHandler(admitter Admitter, events EventLogger) *VoteHandler {
	return &VoteHandler{admitter: admitter, events: events}
}

// SubmitVote handles POST /vote
func (h *VoteHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	ip := middleware.GetClientIP(r)

	var req models.VoteRequest
	decodeErr := middleware.ParseJSONBody(r, &req)
	if decodeErr != nil {
		req = models.VoteRequest{}
	}

	d := h.admitter.Admit(r.Context(), admission.Request{IP: ip, Vote: req, DecodeErr: decodeErr})

	if !d.Accepted() {
		msg := d.Message
		switch d.Reason {
		case admission.StoreUnavailable:
			slog.Error("vote store unavailable", "error", d.Err, "ip", ip)
		case admission.InvalidPayload:
			switch {
			case decodeErr != nil:
				msg = "Invalid JSON"
			case d.Err != nil:
				msg = d.Err.Error()
			}
			slog.Info("vote rejected", "reason", d.Reason, "ip", ip, "error", d.Err)
		default:
			slog.Info("vote rejected", "reason", d.Reason, "ip", ip, "retryable", d.Reason.Retryable())
		}

		h.logEvent(models.EventVoteRejected, req, ip, map[string]any{"reason": string(d.Reason)})
		middleware.ReasonResponse(w, d.Reason.Status(), string(d.Reason), msg)
		return
	}

	slog.Info("vote accepted", "vote_id", d.Vote.ID, "answer", d.Vote.Answer)
	h.logEvent(models.EventVoteSubmitted, req, ip, map[string]any{
		"answer": d.Vote.Answer,
		"gender": d.Vote.Gender,
		"age":    d.Vote.Age,
	})

	middleware.JSONResponse(w, http.StatusOK, models.OKResponse{OK: true})
}

func (h *VoteHandler) logEvent(eventType string, req models.VoteRequest, ip string, evCtx map[string]any) {
	if h.events == nil {
		return
	}
	h.events.LogEvent(eventType, identifierOrEmpty(req.DeviceID), identifierOrEmpty(req.SessionID), ip, evCtx)
}

// identifierOrEmpty keeps malformed client ids out of the event log
func identifierOrEmpty(id string) string {
	if admission.ValidIdentifier(id) {
		return id
	}
	return ""
}
