package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"stockpulse/internal/alert"
)

const (
	yahooChartPath    = "/v8/finance/chart/"
	defaultYahooBase  = "https://query1.finance.yahoo.com"
	defaultQuoteRange = "5d"
	defaultUserAgent  = "Mozilla/5.0 (compatible; stockpulse/1.0)"
)

// YahooOptions parameterise the Yahoo Finance chart client.
type YahooOptions struct {
	BaseURL    string
	QuoteRange string
	Timeout    time.Duration
	UserAgent  string
}

// Yahoo fetches daily bars from the Yahoo Finance chart API.
type Yahoo struct {
	opts    YahooOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewYahoo constructs a Yahoo Finance fetcher.
func NewYahoo(opts YahooOptions, logger zerolog.Logger) *Yahoo {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if opts.QuoteRange == "" {
		opts.QuoteRange = defaultQuoteRange
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = defaultUserAgent
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultYahooBase
	}

	return &Yahoo{
		opts:    opts,
		logger:  logger.With().Str("component", "yahoo_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchQuote returns the latest quote or an error wrapping ErrUnavailable.
func (y *Yahoo) FetchQuote(ctx context.Context, symbol string) (alert.Quote, error) {
	bars, err := y.FetchHistory(ctx, symbol, y.opts.QuoteRange)
	if err != nil {
		y.logger.Debug().Err(err).Str("symbol", symbol).Msg("quote lookup failed")
		return alert.Quote{}, unavailable(symbol, err)
	}
	return QuoteFromBars(symbol, bars)
}

// FetchHistory returns daily bars with null sessions dropped.
func (y *Yahoo) FetchHistory(ctx context.Context, symbol, rng string) ([]Bar, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, errors.New("symbol is required")
	}
	if rng == "" {
		rng = defaultQuoteRange
	}

	query := url.Values{}
	query.Set("range", rng)
	query.Set("interval", "1d")
	endpoint := y.baseURL + yahooChartPath + url.PathEscape(symbol) + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", y.opts.UserAgent)

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var chart chartResponse
	if err := json.Unmarshal(payload, &chart); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("yahoo api error (%d)", resp.StatusCode)
		}
		return nil, fmt.Errorf("decode chart: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error (%d): %s", resp.StatusCode, chart.Chart.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo api error (%d)", resp.StatusCode)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, errors.New("chart result empty")
	}

	return chart.Chart.Result[0].bars(), nil
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

func (r chartResult) bars() []Bar {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	q := r.Indicators.Quote[0]

	bars := make([]Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		closePx := at(q.Close, i)
		if closePx == nil {
			continue
		}
		bar := Bar{
			Time:  time.Unix(ts, 0).UTC(),
			Open:  decimalAt(q.Open, i),
			High:  decimalAt(q.High, i),
			Low:   decimalAt(q.Low, i),
			Close: decimal.NewFromFloat(*closePx),
		}
		if v := at(q.Volume, i); v != nil {
			bar.Volume = int64(*v)
		}
		bars = append(bars, bar)
	}
	return bars
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

func decimalAt(values []*float64, i int) decimal.Decimal {
	if v := at(values, i); v != nil {
		return decimal.NewFromFloat(*v)
	}
	return decimal.Zero
}

var _ PriceFeed = (*Yahoo)(nil)
var _ HistoryFetcher = (*Yahoo)(nil)
