// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package admission

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/danielhkuo/onevote/auth"
	"github.com/danielhkuo/onevote/models"
	"github.com/danielhkuo/onevote/ratelimit"
)

// Verifier checks a vote token and returns its claims.
// Errors must be one of the auth.ErrToken* sentinels.
type Verifier interface {
	Verify(token string) (auth.VoteClaims, error)
}

// Request is one vote submission as seen by the server. DecodeErr is set
// when the body could not be decoded; Vote is then empty.
type Request struct {
	IP        string
	Vote      models.VoteRequest
	DecodeErr error
}

// Decision is the single outcome of admitting a request
type Decision struct {
	Reason  Reason
	Message string
	Err     error // set for InvalidPayload details and StoreUnavailable causes
	Vote    models.VoteRecord
}

func (d Decision) Accepted() bool {
	return d.Reason == Accepted
}

// Pipeline runs the admission guards in a fixed order:
// rate limit, token, token/payload match, then the enforcer.
type Pipeline struct {
	limiter  ratelimit.Limiter
	verifier Verifier
	enforcer *Enforcer
}

func NewPipeline(limiter ratelimit.Limiter, verifier Verifier, enforcer *Enforcer) *Pipeline {
	return &Pipeline{limiter: limiter, verifier: verifier, enforcer: enforcer}
}

// Admit decides one request. The limiter runs first, so undecodable
// bodies are throttled and counted like any other attempt. Only an Accepted decision has committed a vote.
func (p *Pipeline) Admit(ctx context.Context, req Request) Decision {
	if !p.limiter.Allow(ctx, req.IP) {
		return reject(RateLimited, nil)
	}

	if req.DecodeErr != nil {
		return reject(InvalidPayload, fmt.Errorf("invalid JSON: %w", req.DecodeErr))
	}

	claims, err := p.verifier.Verify(req.Vote.VoteToken)
	if err != nil {
		return reject(tokenReason(err), err)
	}

	v := req.Vote
	if claims.SessionID != v.SessionID || claims.Gender != v.Gender || claims.Age != strconv.Itoa(v.Age) {
		return reject(TokenMismatch, nil)
	}

	rec, reason, err := p.enforcer.Enforce(ctx, models.VoteRecord{
		SessionID: v.SessionID,
		DeviceID:  v.DeviceID,
		IP:        req.IP,
		Gender:    v.Gender,
		Age:       v.Age,
		Answer:    v.Answer,
	})
	if reason != Accepted {
		return reject(reason, err)
	}
	return Decision{Reason: Accepted, Message: Accepted.Message(), Vote: rec}
}

func reject(r Reason, err error) Decision {
	return Decision{Reason: r, Message: r.Message(), Err: err}
}

func tokenReason(err error) Reason {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return TokenExpired
	case errors.Is(err, auth.ErrTokenBadSignature):
		return TokenBadSignature
	default:
		return TokenMalformed
	}
}
