package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kadirpekel/jsonstorage/internal/docstore"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS ingest_rate_limits (
    namespace  VARCHAR(255) NOT NULL,
    window     VARCHAR(16)  NOT NULL,
    amount     BIGINT       NOT NULL DEFAULT 0,
    window_end TIMESTAMP    NOT NULL,
    updated_at TIMESTAMP    NOT NULL,
    PRIMARY KEY (namespace, window)
);
`

// Store persists per-namespace request counters, the same
// Postgres/MySQL/SQLite dialect-switching pattern as docstore.Store.
type Store struct {
	db      *sql.DB
	dialect docstore.Dialect
}

// NewStore opens the rate limit store and ensures its table exists.
func NewStore(ctx context.Context, db *sql.DB, dialect docstore.Dialect) (*Store, error) {
	s := &Store{db: db, dialect: dialect}
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("ratelimit: create table: %w", err)
	}
	return s, nil
}

func (s *Store) placeholder(n int) string {
	if s.dialect == docstore.DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// GetUsage returns current usage for a namespace/window pair.
func (s *Store) GetUsage(ctx context.Context, namespace string, window Window) (int64, time.Time, error) {
	query := fmt.Sprintf(`SELECT amount, window_end FROM ingest_rate_limits WHERE namespace = %s AND window = %s`,
		s.placeholder(1), s.placeholder(2))

	var amount int64
	var windowEnd time.Time
	err := s.db.QueryRowContext(ctx, query, namespace, string(window)).Scan(&amount, &windowEnd)
	if err == sql.ErrNoRows {
		return 0, time.Now().Add(window.Duration()), nil
	}
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("ratelimit: get usage: %w", err)
	}

	now := time.Now()
	if windowEnd.Before(now) {
		return 0, now.Add(window.Duration()), nil
	}
	return amount, windowEnd, nil
}

// IncrementUsage adds amount to the current window, rolling it over if
// the previous window has expired.
func (s *Store) IncrementUsage(ctx context.Context, namespace string, window Window, amount int64) (int64, time.Time, error) {
	now := time.Now()
	current, windowEnd, err := s.GetUsage(ctx, namespace, window)
	if err != nil {
		return 0, time.Time{}, err
	}

	if windowEnd.Before(now) || windowEnd.Equal(now) {
		windowEnd = now.Add(window.Duration())
		current = 0
	}
	current += amount

	if err := s.upsert(ctx, namespace, window, current, windowEnd); err != nil {
		return 0, time.Time{}, err
	}
	return current, windowEnd, nil
}

func (s *Store) upsert(ctx context.Context, namespace string, window Window, amount int64, windowEnd time.Time) error {
	now := time.Now()
	var query string
	switch s.dialect {
	case docstore.DialectPostgres:
		query = `INSERT INTO ingest_rate_limits (namespace, window, amount, window_end, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (namespace, window)
			DO UPDATE SET amount = EXCLUDED.amount, window_end = EXCLUDED.window_end, updated_at = EXCLUDED.updated_at`
	case docstore.DialectMySQL:
		query = `INSERT INTO ingest_rate_limits (namespace, window, amount, window_end, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE amount = VALUES(amount), window_end = VALUES(window_end), updated_at = VALUES(updated_at)`
	default:
		query = `INSERT OR REPLACE INTO ingest_rate_limits (namespace, window, amount, window_end, updated_at)
			VALUES (?, ?, ?, ?, ?)`
	}

	_, err := s.db.ExecContext(ctx, query, namespace, string(window), amount, windowEnd, now)
	if err != nil {
		return fmt.Errorf("ratelimit: upsert usage: %w", err)
	}
	return nil
}

// DeleteExpired removes windows that ended before the given time, for
// periodic cleanup.
func (s *Store) DeleteExpired(ctx context.Context, before time.Time) error {
	query := fmt.Sprintf(`DELETE FROM ingest_rate_limits WHERE window_end < %s`, s.placeholder(1))
	_, err := s.db.ExecContext(ctx, query, before)
	if err != nil {
		return fmt.Errorf("ratelimit: delete expired: %w", err)
	}
	return nil
}
