package rules

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"stockpulse/internal/alert"
)

// FileSource reads a local rule table in CSV or YAML form. The file is read on
// every call so edits show up on the next cycle.
type FileSource struct {
	path string
}

// NewFileSource builds a file-backed rule source.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Records parses the file according to its extension.
func (f *FileSource) Records(ctx context.Context) ([]alert.Record, error) {
	if f.path == "" {
		return nil, fmt.Errorf("rules.file not configured")
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(f.path)) {
	case ".csv":
		return ReadCSV(bytes.NewReader(data))
	case ".yaml", ".yml":
		return decodeYAML(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f.path)
	}
}

// decodeYAML accepts either a top-level list of rows or a mapping with a
// "rules" list.
func decodeYAML(data []byte) ([]alert.Record, error) {
	var rows []map[string]any
	if err := yaml.Unmarshal(data, &rows); err != nil {
		var doc struct {
			Rules []map[string]any `yaml:"rules"`
		}
		if err2 := yaml.Unmarshal(data, &doc); err2 != nil {
			return nil, fmt.Errorf("decode rule yaml: %w", err)
		}
		rows = doc.Rules
	}

	records := make([]alert.Record, 0, len(rows))
	for _, row := range rows {
		rec := make(alert.Record, len(row))
		for k, v := range row {
			rec[k] = cellString(v)
		}
		records = append(records, rec)
	}
	return records, nil
}

func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

var _ Source = (*FileSource)(nil)
