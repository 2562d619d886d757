// Package rules reads alert rule tables and normalizes them for one identity.
package rules

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"stockpulse/internal/alert"
)

// ErrUnsupportedFormat is returned for rule files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported rule file format")

// Source supplies the raw rule table. Implementations never write.
type Source interface {
	Records(ctx context.Context) ([]alert.Record, error)
}

// ReadCSV parses a rule table whose first row is the header. Header names are
// trimmed; cell values are kept verbatim.
func ReadCSV(r io.Reader) ([]alert.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return []alert.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	records := make([]alert.Record, 0)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		rec := make(alert.Record, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(row) {
				rec[name] = row[i]
			} else {
				rec[name] = ""
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
