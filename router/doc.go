// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the onevote API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(router.Deps{Store: store, Issuer: issuer, ...}, cfg)

# Endpoints

Health:

	GET /health

Voting (public):

	POST /token      - Issue a vote token for a declared profile
	POST /vote       - Submit the single vote of a session
	GET  /poll/stats - Yes/no tally

Analytics:

	POST /analytics/log     - Record a client funnel event
	GET  /analytics/summary - Funnel and demographics (requires X-API-Key)

Every route except /health is wrapped with request logging and the
configured request timeout. The summary is also limited per client IP by
Deps.AdminLimiter.
*/
package router
