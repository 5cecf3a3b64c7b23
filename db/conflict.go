// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"errors"
	"strings"

	"github.com/danielhkuo/onevote/models"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const pqUniqueViolation = "23505"

// classifyConflict maps a driver unique-violation on the vote table to the
// matching sentinel. Returns nil for anything else.
func classifyConflict(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code != pqUniqueViolation {
			return nil
		}
		switch pqErr.Constraint {
		case constraintVoteDevice:
			return models.ErrDuplicateDevice
		case constraintVoteSession:
			return models.ErrDuplicateSession
		}
		return nil
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		if code != sqlite3.SQLITE_CONSTRAINT_UNIQUE && code&0xff != sqlite3.SQLITE_CONSTRAINT {
			return nil
		}
		// SQLite names the columns, not the constraint
		msg := liteErr.Error()
		switch {
		case strings.Contains(msg, "vote.device_id"):
			return models.ErrDuplicateDevice
		case strings.Contains(msg, "vote.session_id"):
			return models.ErrDuplicateSession
		}
	}
	return nil
}
