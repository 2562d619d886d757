package rules

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stockpulse/internal/alert"
)

const (
	defaultSheetBase      = "https://docs.google.com"
	defaultSheetWorksheet = "Rules"
)

// SheetOptions locate the rule worksheet.
type SheetOptions struct {
	SheetID       string
	Worksheet     string
	BaseURL       string
	Timeout       time.Duration
	ConnectionTTL time.Duration
}

// SheetSource reads a spreadsheet worksheet through its CSV export endpoint.
type SheetSource struct {
	opts    SheetOptions
	baseURL string
	client  *Lazy[*http.Client]
	logger  zerolog.Logger
}

// NewSheetSource builds a spreadsheet-backed rule source.
func NewSheetSource(opts SheetOptions, logger zerolog.Logger) *SheetSource {
	if opts.Worksheet == "" {
		opts.Worksheet = defaultSheetWorksheet
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultSheetBase
	}

	client := NewLazy(opts.ConnectionTTL,
		func(context.Context) (*http.Client, error) {
			return &http.Client{Timeout: timeout}, nil
		},
		func(c *http.Client) { c.CloseIdleConnections() },
	)

	return &SheetSource{
		opts:    opts,
		baseURL: baseURL,
		client:  client,
		logger:  logger.With().Str("component", "sheet_rules").Logger(),
	}
}

// Records downloads and parses the worksheet.
func (s *SheetSource) Records(ctx context.Context) ([]alert.Record, error) {
	if s.opts.SheetID == "" {
		return nil, fmt.Errorf("rules.sheet_id not configured")
	}

	client, err := s.client.Get(ctx)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("tqx", "out:csv")
	query.Set("sheet", s.opts.Worksheet)
	endpoint := fmt.Sprintf("%s/spreadsheets/d/%s/gviz/tq?%s", s.baseURL, url.PathEscape(s.opts.SheetID), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create sheet request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := client.Do(req)
	if err != nil {
		s.client.Reset()
		return nil, fmt.Errorf("fetch sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("sheet responded %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if ct := resp.Header.Get("Content-Type"); strings.Contains(ct, "text/html") {
		// private sheets redirect to a sign-in page
		return nil, fmt.Errorf("sheet returned html; is it shared for link access?")
	}

	records, err := ReadCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse sheet: %w", err)
	}
	s.logger.Debug().Int("rows", len(records)).Msg("sheet loaded")
	return records, nil
}

var _ Source = (*SheetSource)(nil)
