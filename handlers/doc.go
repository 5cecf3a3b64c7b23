// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the onevote API.

# Handler Types

Each handler is a struct over the narrow interfaces it needs:

  - TokenHandler: issues vote tokens
  - VoteHandler: runs submissions through the admission pipeline
  - StatsHandler: public tally, admin summary and health
  - AnalyticsHandler: client funnel events

Constructors take those collaborators directly:

	tokens := handlers.NewTokenHandler(issuer)
	votes := handlers.NewVoteHandler(pipeline, eventLogger)

# Voting Flow

	POST /token  {sessionId, gender, age}            → {token, expires_in}
	POST /vote   {sessionId, deviceId?, gender, age, answer, voteToken} → {ok}

The age sent to /token is a decimal string; the age sent to /vote is a
number. The token binds the two, so "030" is refused at /token.

Every rejected vote answers with a reason code and logs a vote_rejected
event carrying it:

	{"error": "Forbidden", "message": "...", "reason": "already_voted"}

# Reporting

	GET  /poll/stats         → {yesVotes, noVotes}
	GET  /analytics/summary  → funnel, abandonment by gender, totals, age × gender buckets (X-API-Key)
	POST /analytics/log      → {ok}

Summary counts run concurrently under an errgroup; any failed count fails
the request.

# Error Handling

All errors return JSON:

	{"error": "Bad Request", "message": "Invalid JSON"}

Store failures are logged with slog and reported as 500 without detail.
*/
package handlers
