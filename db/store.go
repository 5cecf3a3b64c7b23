// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/danielhkuo/onevote/models"
)

// Store is the durable record of accepted votes and funnel events.
// InsertUnique is the only write on the admission path and must fail with
// models.ErrDuplicateDevice or models.ErrDuplicateSession when the
// backend's uniqueness constraints reject the record.
type Store interface {
	CountByIP(ctx context.Context, ip string) (int, error)
	ExistsByDevice(ctx context.Context, deviceID string) (bool, error)
	ExistsBySession(ctx context.Context, sessionID string) (bool, error)
	InsertUnique(ctx context.Context, rec models.VoteRecord) error

	CountVotes(ctx context.Context, filter models.VoteFilter) (int, error)

	InsertEvent(ctx context.Context, ev models.AnalyticsEvent) error
	CountEvents(ctx context.Context, eventType string) (int, error)
	// CountEventsBy groups events of one type by a context key. Events
	// without that key are counted under "".
	CountEventsBy(ctx context.Context, eventType, key string) (map[string]int, error)

	Ping(ctx context.Context) error
	Close() error
}

// Backend names accepted by Open
const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
	TypeMongo    = "mongo"
)

// Options selects and configures a Store backend
type Options struct {
	Type     string
	URL      string
	MongoDB  string
	MaxConns int
}

// Open connects to the configured backend and ensures its schema or
// indexes exist.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Type) {
	case "", TypeSQLite:
		return OpenSQLite(ctx, opts.URL)
	case TypePostgres, "postgresql":
		return OpenPostgres(ctx, opts.URL, opts.MaxConns)
	case TypeMongo, "mongodb":
		return OpenMongo(ctx, opts.URL, opts.MongoDB)
	default:
		return nil, fmt.Errorf("unknown database type %q", opts.Type)
	}
}
