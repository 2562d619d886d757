package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stockpulse/internal/alert"
	"stockpulse/internal/rules"
)

const listSQLiteRulesSQL = `SELECT
        COALESCE(CAST(user_email AS TEXT), ''),
        COALESCE(CAST(symb AS TEXT), ''),
        COALESCE(CAST(alert_type AS TEXT), ''),
        COALESCE(CAST(min_price AS TEXT), ''),
        COALESCE(CAST(max_price AS TEXT), ''),
        COALESCE(CAST(min_vol AS TEXT), ''),
        COALESCE(CAST(status AS TEXT), '')
    FROM alert_rules
    ORDER BY id;`

// SQLiteRules reads the rule table from a SQLite file.
type SQLiteRules struct {
	conn *rules.Lazy[*sql.DB]
}

// NewSQLiteRules wraps an existing lazily opened handle.
func NewSQLiteRules(conn *rules.Lazy[*sql.DB]) *SQLiteRules {
	return &SQLiteRules{conn: conn}
}

// NewSQLiteRulesFromPath opens path read-only on first use and reopens it after ttl.
func NewSQLiteRulesFromPath(path string, ttl time.Duration) *SQLiteRules {
	conn := rules.NewLazy(ttl,
		func(ctx context.Context) (*sql.DB, error) { return OpenSQLite(ctx, path) },
		func(db *sql.DB) { _ = db.Close() },
	)
	return NewSQLiteRules(conn)
}

// Records lists every row of alert_rules in insertion order.
func (s *SQLiteRules) Records(ctx context.Context) ([]alert.Record, error) {
	db, err := s.conn.Get(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, listSQLiteRulesSQL)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	records := make([]alert.Record, 0)
	for rows.Next() {
		rec, scanErr := scanRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Close releases the handle.
func (s *SQLiteRules) Close() {
	s.conn.Close()
}

var _ rules.Source = (*SQLiteRules)(nil)
