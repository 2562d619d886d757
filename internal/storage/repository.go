package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"stockpulse/internal/alert"
	"stockpulse/internal/config"
	"stockpulse/internal/rules"
)

// The rule table is owned by whoever edits the rules; it is only read here.
// Cells are cast to text so numeric and text schemas both normalize the same way.
const listRulesSQL = `SELECT
        COALESCE(user_email::text, ''),
        COALESCE(symb::text, ''),
        COALESCE(alert_type::text, ''),
        COALESCE(min_price::text, ''),
        COALESCE(max_price::text, ''),
        COALESCE(min_vol::text, ''),
        COALESCE(status::text, '')
    FROM alert_rules
    ORDER BY id;`

type rowScanner interface {
	Scan(dest ...any) error
}

// pgConn is the subset of *pgxpool.Pool the rule reader needs.
type pgConn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// PostgresRules reads the rule table from PostgreSQL.
type PostgresRules struct {
	conn *rules.Lazy[pgConn]
}

// NewPostgresRules builds a rule source whose pool is opened on first use and
// re-established after ttl.
func NewPostgresRules(cfg config.DatabaseConfig, ttl time.Duration) *PostgresRules {
	return newPostgresRules(rules.NewLazy(ttl,
		func(ctx context.Context) (pgConn, error) {
			pool, err := NewPool(ctx, cfg)
			if err != nil {
				return nil, err
			}
			return pool, nil
		},
		func(c pgConn) { c.Close() },
	))
}

func newPostgresRules(conn *rules.Lazy[pgConn]) *PostgresRules {
	return &PostgresRules{conn: conn}
}

// Records lists every row of alert_rules in insertion order.
func (s *PostgresRules) Records(ctx context.Context) ([]alert.Record, error) {
	conn, err := s.conn.Get(ctx)
	if err != nil {
		return nil, err
	}

	rows, queryErr := conn.Query(ctx, listRulesSQL)
	if queryErr != nil {
		s.conn.Reset()
		return nil, fmt.Errorf("list rules: %w", queryErr)
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
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return records, nil
}

// Close releases the pool.
func (s *PostgresRules) Close() {
	s.conn.Close()
}

func scanRecord(row rowScanner) (alert.Record, error) {
	var owner, symbol, alertType, minPrice, maxPrice, minVol, status string
	if err := row.Scan(&owner, &symbol, &alertType, &minPrice, &maxPrice, &minVol, &status); err != nil {
		return nil, fmt.Errorf("scan rule: %w", err)
	}
	return alert.Record{
		alert.ColumnOwner:     owner,
		alert.ColumnSymbol:    symbol,
		alert.ColumnAlertType: alertType,
		alert.ColumnMinPrice:  minPrice,
		alert.ColumnMaxPrice:  maxPrice,
		alert.ColumnMinVolume: minVol,
		alert.ColumnStatus:    status,
	}, nil
}

var _ rules.Source = (*PostgresRules)(nil)
