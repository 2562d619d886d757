package rules

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockpulse/internal/alert"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFileSourceYAML(t *testing.T) {
	path := writeFile(t, "rules.yaml", `
- user_email: a@x.io
  symb: AAPL
  alert_type: above
  max_price: 150.5
  min_vol: 1000000
  status: Active
- user_email: a@x.io
  symb: TSLA
  min_price: ~
  status: Paused
`)

	records, err := NewFileSource(path).Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "150.5", records[0][alert.ColumnMaxPrice])
	assert.Equal(t, "1000000", records[0][alert.ColumnMinVolume])
	assert.Equal(t, "", records[1][alert.ColumnMinPrice])
}

func TestFileSourceYAMLRulesKey(t *testing.T) {
	path := writeFile(t, "rules.yml", "rules:\n  - user_email: a@x.io\n    symb: MSFT\n")

	records, err := NewFileSource(path).Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "MSFT", records[0][alert.ColumnSymbol])
}

func TestFileSourceCSV(t *testing.T) {
	path := writeFile(t, "rules.csv", "user_email,symb,status\na@x.io,NVDA,Active\n")

	records, err := NewFileSource(path).Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestFileSourceErrors(t *testing.T) {
	_, err := NewFileSource("").Records(context.Background())
	assert.Error(t, err)

	_, err = NewFileSource(filepath.Join(t.TempDir(), "missing.csv")).Records(context.Background())
	assert.Error(t, err)

	path := writeFile(t, "rules.json", "[]")
	_, err = NewFileSource(path).Records(context.Background())
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}
