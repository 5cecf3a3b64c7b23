// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/danielhkuo/onevote/auth"
	"github.com/danielhkuo/onevote/models"
	json "github.com/goccy/go-json"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// SQLStore implements Store on database/sql for SQLite and PostgreSQL.
// Queries are written with ? placeholders and rebound per dialect.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLStore wraps an open connection. The schema must already exist.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// OpenSQLite opens a database file with the pure-Go driver. A single
// connection serializes writers the way SQLite does anyway.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	conn.SetMaxOpenConns(1)

	return initSQL(ctx, conn, DialectSQLite)
}

func OpenPostgres(ctx context.Context, url string, maxConns int) (*SQLStore, error) {
	conn, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if maxConns > 0 {
		conn.SetMaxOpenConns(maxConns)
		conn.SetMaxIdleConns(maxConns)
	}
	conn.SetConnMaxIdleTime(5 * time.Minute)

	return initSQL(ctx, conn, DialectPostgres)
}

func initSQL(ctx context.Context, conn *sql.DB, dialect Dialect) (*SQLStore, error) {
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", dialect, err)
	}
	if err := CreateSchema(conn, dialect); err != nil {
		conn.Close()
		return nil, err
	}
	return NewSQLStore(conn, dialect), nil
}

// DB exposes the underlying handle for tests and maintenance tasks
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// rebind rewrites ? placeholders to $1..$n for PostgreSQL
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (s *SQLStore) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, s.rebind(query), args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SQLStore) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var found int
	err := s.db.QueryRowContext(ctx, s.rebind(query), args...).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLStore) CountByIP(ctx context.Context, ip string) (int, error) {
	n, err := s.count(ctx, `SELECT COUNT(*) FROM vote WHERE ip = ?`, ip)
	if err != nil {
		return 0, fmt.Errorf("failed to count votes by ip: %w", err)
	}
	return n, nil
}

func (s *SQLStore) ExistsByDevice(ctx context.Context, deviceID string) (bool, error) {
	ok, err := s.exists(ctx, `SELECT 1 FROM vote WHERE device_id = ? LIMIT 1`, deviceID)
	if err != nil {
		return false, fmt.Errorf("failed to check device: %w", err)
	}
	return ok, nil
}

func (s *SQLStore) ExistsBySession(ctx context.Context, sessionID string) (bool, error) {
	ok, err := s.exists(ctx, `SELECT 1 FROM vote WHERE session_id = ? LIMIT 1`, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return ok, nil
}

// InsertUnique inserts rec in a single statement. The UNIQUE constraints
// on session_id and device_id decide races between concurrent inserts.
func (s *SQLStore) InsertUnique(ctx context.Context, rec models.VoteRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO vote (id, session_id, device_id, ip, gender, age, answer, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), rec.ID, rec.SessionID, nullString(rec.DeviceID), rec.IP, rec.Gender, rec.Age, rec.Answer, createdAt)
	if err != nil {
		if conflict := classifyConflict(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("failed to insert vote: %w", err)
	}
	return nil
}

func (s *SQLStore) CountVotes(ctx context.Context, f models.VoteFilter) (int, error) {
	query := `SELECT COUNT(*) FROM vote WHERE 1=1`
	var args []any
	if f.Answer != "" {
		query += ` AND answer = ?`
		args = append(args, f.Answer)
	}
	if f.Gender != "" {
		query += ` AND gender = ?`
		args = append(args, f.Gender)
	}
	if f.MinAge > 0 {
		query += ` AND age >= ?`
		args = append(args, f.MinAge)
	}
	if f.MaxAge > 0 {
		query += ` AND age <= ?`
		args = append(args, f.MaxAge)
	}

	n, err := s.count(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return n, nil
}

func (s *SQLStore) InsertEvent(ctx context.Context, ev models.AnalyticsEvent) error {
	id, err := auth.GenerateID(16)
	if err != nil {
		return err
	}

	var payload sql.NullString
	if len(ev.Context) > 0 {
		b, err := json.Marshal(ev.Context)
		if err != nil {
			return fmt.Errorf("failed to encode event context: %w", err)
		}
		payload = sql.NullString{String: string(b), Valid: true}
	}

	createdAt := ev.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO analytics_event (id, type, session_id, device_id, ip, context, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), id, ev.Type, nullString(ev.SessionID), nullString(ev.DeviceID), nullString(ev.IP), payload, createdAt)
	if err != nil {
		return fmt.Errorf("failed to insert analytics event: %w", err)
	}
	return nil
}

func (s *SQLStore) CountEvents(ctx context.Context, eventType string) (int, error) {
	n, err := s.count(ctx, `SELECT COUNT(*) FROM analytics_event WHERE type = ?`, eventType)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}

func (s *SQLStore) CountEventsBy(ctx context.Context, eventType, key string) (map[string]int, error) {
	query := `SELECT COALESCE(CAST(json_extract(context, ?) AS TEXT), ''), COUNT(*)
		FROM analytics_event WHERE type = ? GROUP BY 1`
	arg := "$." + key
	if s.dialect == DialectPostgres {
		query = `SELECT COALESCE(context->>CAST(? AS TEXT), ''), COUNT(*)
			FROM analytics_event WHERE type = ? GROUP BY 1`
		arg = key
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), arg, eventType)
	if err != nil {
		return nil, fmt.Errorf("failed to group events: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var value string
		var n int
		if err := rows.Scan(&value, &n); err != nil {
			return nil, fmt.Errorf("failed to scan event group: %w", err)
		}
		out[value] += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to group events: %w", err)
	}
	return out, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
