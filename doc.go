// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the onevote API server.

onevote runs a single anonymous yes/no question. A client first declares a
profile (gender, age) and receives a short-lived vote token, then submits
one vote bound to that token. Each vote passes an admission pipeline
(rate limit, token, IP cap, device and session uniqueness) before it is
stored.

# Starting the Server

The server reads CLI flags, then environment variables, then a .env file:

	DATABASE_URL=onevote.db VOTE_TOKEN_SECRET=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." --token-secret ...

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite path, PostgreSQL URL or MongoDB URI
  - VOTE_TOKEN_SECRET (--token-secret): HS256 key, at least 16 bytes

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite, postgres or mongo (default: sqlite)
  - MONGODB_DB (--mongo-db): Mongo database name (default: onevote)
  - REDIS_URL (--redis): share rate limits across instances
  - ADMIN_API_KEY (--api-key): enables GET /analytics/summary
  - VOTE_RATE_LIMIT / VOTE_RATE_WINDOW: default 5 per hour
  - MAX_VOTES_PER_IP: default 20
  - LOG_LEVEL, LOG_FORMAT (text or json)

# Architecture

  - admission: the vote admission pipeline and rejection reasons
  - auth: vote tokens and API key checks
  - ratelimit: sliding window (memory, Redis) and token bucket limiters
  - db: vote store over SQLite, PostgreSQL or MongoDB
  - analytics: background funnel event writer
  - handlers: HTTP request handlers
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, timeouts, JSON helpers
  - models: Request/response types
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
