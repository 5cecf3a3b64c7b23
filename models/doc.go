// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - TokenRequest: sessionId, gender, age (decimal string)
  - VoteRequest: sessionId, deviceId, gender, age (int), answer, voteToken
  - AnalyticsEventRequest: type, sessionId, deviceId, context

# Response Types

Types for JSON responses:

  - TokenResponse: token, expires_in
  - OKResponse: ok
  - PollStatsResponse: yesVotes, noVotes
  - SummaryResponse: funnel, totals, age/gender breakdowns
  - ErrorResponse: error, message, reason

# Domain Types

  - VoteRecord: one accepted vote, immutable once stored
  - VoteFilter: predicate for reporting counts
  - AnalyticsEvent: one funnel event

# Store Conflicts

InsertUnique implementations return ErrDuplicateDevice or ErrDuplicateSession
when a uniqueness constraint rejects the row:

	if errors.Is(err, models.ErrDuplicateDevice) { ... }

# Constants

Genders and answers:

	GenderMale = "male"   GenderFemale = "female"
	AnswerYes  = "yes"    AnswerNo     = "no"

Age bounds are MinAge (16) and MaxAge (120), inclusive.
*/
package models
