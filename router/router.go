// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/danielhkuo/onevote/admission"
	"github.com/danielhkuo/onevote/auth"
	"github.com/danielhkuo/onevote/cliparse"
	"github.com/danielhkuo/onevote/db"
	"github.com/danielhkuo/onevote/handlers"
	"github.com/danielhkuo/onevote/middleware"
	"github.com/danielhkuo/onevote/ratelimit"
	"github.com/jonboulle/clockwork"
)

// Deps are the long-lived collaborators shared by all handlers
type Deps struct {
	Store        db.Store
	Issuer       *auth.TokenIssuer
	VoteLimiter  ratelimit.Limiter
	AdminLimiter ratelimit.Limiter
	EventLimiter ratelimit.Limiter // nil disables event throttling
	Events       handlers.EventLogger
	Clock        clockwork.Clock
}

func NewRouter(deps Deps, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Build the admission pipeline
	enforcer := admission.NewEnforcer(deps.Store, cfg.MaxVotesPerIP, deps.Clock)
	pipeline := admission.NewPipeline(deps.VoteLimiter, deps.Issuer, enforcer)

	// Initialize handlers
	tokenHandler := handlers.NewTokenHandler(deps.Issuer)
	voteHandler := handlers.NewVoteHandler(pipeline, deps.Events)
	statsHandler := handlers.NewStatsHandler(deps.Store)
	analyticsHandler := handlers.NewAnalyticsHandler(deps.Events, deps.EventLimiter)

	wrap := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.WithTimeout(cfg.RequestTimeout, h))
	}

	// Health check
	mux.HandleFunc("GET /health", statsHandler.Health)

	// Voting (public)
	mux.HandleFunc("POST /token", wrap(tokenHandler.IssueToken))
	mux.HandleFunc("POST /vote", wrap(voteHandler.SubmitVote))
	mux.HandleFunc("GET /poll/stats", wrap(statsHandler.GetPollStats))

	// Analytics
	mux.HandleFunc("POST /analytics/log", wrap(analyticsHandler.LogEvent))
	mux.HandleFunc("GET /analytics/summary", wrap(middleware.RequireAPIKey(cfg.AdminAPIKey, deps.AdminLimiter, statsHandler.GetSummary)))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("onevote API v1"))
	})

	return mux
}
