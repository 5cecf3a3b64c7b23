// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package admission

import "net/http"

// Reason is the closed set of admission outcomes. The string value is the
// machine-readable code returned to clients.
type Reason string

const (
	Accepted          Reason = "accepted"
	RateLimited       Reason = "rate_limited"
	TokenExpired      Reason = "token_expired"
	TokenBadSignature Reason = "token_bad_signature"
	TokenMalformed    Reason = "token_malformed"
	TokenMismatch     Reason = "token_mismatch"
	InvalidPayload    Reason = "invalid_payload"
	IPCapExceeded     Reason = "ip_cap_exceeded"
	AlreadyVoted      Reason = "already_voted"
	DuplicateSession  Reason = "duplicate_session"
	StoreUnavailable  Reason = "store_unavailable"
)

// Status maps a reason to its HTTP status code
func (r Reason) Status() int {
	switch r {
	case Accepted:
		return http.StatusOK
	case RateLimited:
		return http.StatusTooManyRequests
	case TokenExpired, TokenBadSignature, TokenMalformed, TokenMismatch:
		return http.StatusUnauthorized
	case InvalidPayload:
		return http.StatusBadRequest
	case IPCapExceeded, AlreadyVoted, DuplicateSession:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Message is the default user-facing text for a reason
func (r Reason) Message() string {
	switch r {
	case Accepted:
		return "Vote recorded"
	case RateLimited:
		return "Too many attempts, please try again later"
	case TokenExpired:
		return "Your voting session expired, please start again"
	case TokenBadSignature, TokenMalformed:
		return "Invalid vote token"
	case TokenMismatch:
		return "Vote does not match the details you entered"
	case InvalidPayload:
		return "Invalid vote"
	case IPCapExceeded:
		return "Too many votes from this network"
	case AlreadyVoted:
		return "This device has already voted"
	case DuplicateSession:
		return "This vote was already submitted"
	default:
		return "Unable to record vote, please try again later"
	}
}

// Retryable reports whether the client may succeed by trying again later
func (r Reason) Retryable() bool {
	return r == RateLimited || r == StoreUnavailable || r == TokenExpired
}
