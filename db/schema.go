// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// Dialect selects the SQL flavour used for schema and placeholders
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Constraint names, referenced when classifying unique violations
const (
	constraintVoteSession = "vote_session_id_key"
	constraintVoteDevice  = "vote_device_id_key"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB, dialect Dialect) error {
	var ddl string
	switch dialect {
	case DialectPostgres:
		ddl = postgresSchema
	case DialectSQLite:
		ddl = sqliteSchema
	default:
		return fmt.Errorf("unsupported dialect %q", dialect)
	}

	_, err := db.Exec(ddl)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const postgresSchema = `
-- Votes
CREATE TABLE IF NOT EXISTS vote (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    device_id TEXT,
    ip TEXT NOT NULL,
    gender TEXT NOT NULL CHECK (gender IN ('male', 'female')),
    age INTEGER NOT NULL CHECK (age BETWEEN 16 AND 120),
    answer TEXT NOT NULL CHECK (answer IN ('yes', 'no')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT vote_session_id_key UNIQUE (session_id),
    CONSTRAINT vote_device_id_key UNIQUE (device_id)
);

CREATE INDEX IF NOT EXISTS idx_vote_ip ON vote(ip);
CREATE INDEX IF NOT EXISTS idx_vote_answer_gender_age ON vote(answer, gender, age);
CREATE INDEX IF NOT EXISTS idx_vote_created_at ON vote(created_at DESC);

-- Funnel events
CREATE TABLE IF NOT EXISTS analytics_event (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    session_id TEXT,
    device_id TEXT,
    ip TEXT,
    context JSONB,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_analytics_event_type ON analytics_event(type);
CREATE INDEX IF NOT EXISTS idx_analytics_event_device_id ON analytics_event(device_id);
CREATE INDEX IF NOT EXISTS idx_analytics_event_created_at ON analytics_event(created_at DESC);
`

// SQLite keeps NULLs distinct under UNIQUE, so votes without a device
// never collide with each other.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS vote (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    device_id TEXT,
    ip TEXT NOT NULL,
    gender TEXT NOT NULL CHECK (gender IN ('male', 'female')),
    age INTEGER NOT NULL CHECK (age BETWEEN 16 AND 120),
    answer TEXT NOT NULL CHECK (answer IN ('yes', 'no')),
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CONSTRAINT vote_session_id_key UNIQUE (session_id),
    CONSTRAINT vote_device_id_key UNIQUE (device_id)
);

CREATE INDEX IF NOT EXISTS idx_vote_ip ON vote(ip);
CREATE INDEX IF NOT EXISTS idx_vote_answer_gender_age ON vote(answer, gender, age);
CREATE INDEX IF NOT EXISTS idx_vote_created_at ON vote(created_at DESC);

CREATE TABLE IF NOT EXISTS analytics_event (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    session_id TEXT,
    device_id TEXT,
    ip TEXT,
    context TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_analytics_event_type ON analytics_event(type);
CREATE INDEX IF NOT EXISTS idx_analytics_event_device_id ON analytics_event(device_id);
CREATE INDEX IF NOT EXISTS idx_analytics_event_created_at ON analytics_event(created_at DESC);
`
