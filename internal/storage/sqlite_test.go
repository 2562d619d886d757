package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"stockpulse/internal/alert"
	"stockpulse/internal/rules"
)

var ruleColumns = []string{"user_email", "symb", "alert_type", "min_price", "max_price", "min_vol", "status"}

func newMockRules(t *testing.T) (*SQLiteRules, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	conn := rules.NewLazy(time.Hour,
		func(context.Context) (*sql.DB, error) { return db, nil },
		func(db *sql.DB) { _ = db.Close() },
	)
	return NewSQLiteRules(conn), mock
}

func TestSQLiteRulesRecords(t *testing.T) {
	repo, mock := newMockRules(t)

	rows := sqlmock.NewRows(ruleColumns).
		AddRow("a@x.io", "AAPL", "above", "", "150", "1000000", "Active").
		AddRow("a@x.io", "MSFT", "below", "300", "", "", "Paused")
	mock.ExpectQuery(`SELECT (.+) FROM alert_rules\s+ORDER BY id`).WillReturnRows(rows)

	records, err := repo.Records(context.Background())
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0][alert.ColumnMaxPrice] != "150" || records[1][alert.ColumnStatus] != "Paused" {
		t.Fatalf("unexpected records %#v", records)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSQLiteRulesQueryError(t *testing.T) {
	repo, mock := newMockRules(t)
	mock.ExpectQuery(`SELECT (.+) FROM alert_rules`).WillReturnError(errors.New("disk I/O error"))

	if _, err := repo.Records(context.Background()); err == nil {
		t.Fatal("expected query error")
	}
}

func TestSQLiteRulesScanError(t *testing.T) {
	repo, mock := newMockRules(t)
	rows := sqlmock.NewRows([]string{"user_email"}).AddRow("a@x.io")
	mock.ExpectQuery(`SELECT (.+) FROM alert_rules`).WillReturnRows(rows)

	if _, err := repo.Records(context.Background()); err == nil {
		t.Fatal("expected scan error on column mismatch")
	}
}

func TestSQLiteRulesNotConfigured(t *testing.T) {
	repo := NewSQLiteRulesFromPath("", time.Minute)
	if _, err := repo.Records(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSQLiteRulesMissingFileIsNotCreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.db")
	repo := NewSQLiteRulesFromPath(path, time.Minute)
	defer repo.Close()

	if _, err := repo.Records(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing database must not be created, stat err = %v", err)
	}
}
