// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db is the vote store: schema, SQL and MongoDB backends.

# Opening a Store

	store, err := db.Open(ctx, db.Options{Type: "sqlite", URL: "onevote.db"})
	defer store.Close()

Supported types are sqlite (modernc, pure Go), postgres (lib/pq), and
mongo. SQL backends create their schema on open; Mongo creates its indexes.

# Schema Creation

CreateSchema initializes all required tables for a dialect:

	if err := db.CreateSchema(conn, db.DialectPostgres); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - vote: one row per accepted vote, immutable
  - analytics_event: funnel events, append only

MongoDB uses the pollResponses and analyticsEvents collections.

# Uniqueness

The store, not the application, guarantees at most one vote per session
and per non-null device:

  - vote_session_id_key UNIQUE (session_id)
  - vote_device_id_key UNIQUE (device_id), NULL allowed repeatedly
  - Mongo: sessionId_unique, deviceId_unique (sparse)

InsertUnique translates a violation of either into models.ErrDuplicateSession
or models.ErrDuplicateDevice. Any other error is returned wrapped.

# Indexes

  - vote.ip (per-IP cap)
  - vote.(answer, gender, age) (reporting)
  - vote.created_at, analytics_event.type, analytics_event.created_at
*/
package db
