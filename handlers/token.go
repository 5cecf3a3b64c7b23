// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/danielhkuo/onevote/admission"
	"github.com/danielhkuo/onevote/middleware"
	"github.com/danielhkuo/onevote/models"
)

// TokenIssuer signs vote tokens
type TokenIssuer interface {
	Issue(sessionID, gender, age string) (string, time.Time, error)
	TTL() time.Duration
}

type TokenHandler struct {
	issuer TokenIssuer
}

func NewTokenHandler(issuer TokenIssuer) *TokenHandler {
	return &TokenHandler{issuer: issuer}
}

// IssueToken handles POST /token
func (h *TokenHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req models.TokenRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if !admission.ValidIdentifier(req.SessionID) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "sessionId is required")
		return
	}
	if req.Gender != models.GenderMale && req.Gender != models.GenderFemale {
		middleware.ErrorResponse(w, http.StatusBadRequest, "gender must be male or female")
		return
	}
	if !validAge(req.Age) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "age must be a whole number between 16 and 120")
		return
	}

	token, _, err := h.issuer.Issue(req.SessionID, req.Gender, req.Age)
	if err != nil {
		slog.Error("failed to issue vote token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.TokenResponse{
		Token:     token,
		ExpiresIn: int(h.issuer.TTL() / time.Second),
	})
}

// validAge accepts only the canonical decimal form, so the claim compares
// equal to strconv.Itoa of the age submitted with the vote.
func validAge(s string) bool {
	n, err := strconv.Atoi(s)
	if err != nil || strconv.Itoa(n) != s {
		return false
	}
	return n >= models.MinAge && n <= models.MaxAge
}
