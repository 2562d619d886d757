package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

const chartTwoSessions = `{"chart":{"result":[{"meta":{"symbol":"AAPL"},
"timestamp":[1700000000,1700086400,1700172800],
"indicators":{"quote":[{"open":[148,149,150],"high":[151,152,153],"low":[147,148,149],
"close":[148.5,null,152.344],"volume":[1000,2000,2500000.9]}]}}],"error":null}}`

func newTestYahoo(t *testing.T, handler http.HandlerFunc) *Yahoo {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewYahoo(YahooOptions{BaseURL: srv.URL, Timeout: time.Second, UserAgent: "test"}, noopLogger())
}

func TestYahooFetchQuoteSuccess(t *testing.T) {
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v8/finance/chart/AAPL") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("interval") != "1d" {
			t.Fatalf("interval should be 1d, got %q", r.URL.Query().Get("interval"))
		}
		if r.Header.Get("User-Agent") != "test" {
			t.Fatalf("user agent not forwarded")
		}
		_, _ = w.Write([]byte(chartTwoSessions))
	})

	q, err := y.FetchQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("FetchQuote should succeed: %v", err)
	}
	if !q.Price.Equal(decimal.RequireFromString("152.34")) {
		t.Fatalf("price should round to 152.34, got %s", q.Price)
	}
	// (152.34 - 148.5) / 148.5 * 100 = 2.5858...
	if !q.ChangePct.Equal(decimal.RequireFromString("2.59")) {
		t.Fatalf("change should be 2.59, got %s", q.ChangePct)
	}
	if q.Volume != 2500000 {
		t.Fatalf("volume should truncate to 2500000, got %d", q.Volume)
	}
	if q.Symbol != "AAPL" {
		t.Fatalf("symbol not set")
	}
}

func TestYahooFetchQuoteSingleSession(t *testing.T) {
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[{"timestamp":[1700000000],
"indicators":{"quote":[{"close":[10],"volume":[5]}]}}],"error":null}}`))
	})

	if _, err := y.FetchQuote(context.Background(), "ONE"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("one session should be unavailable, got %v", err)
	}
}

func TestYahooFetchQuoteHTTPError(t *testing.T) {
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	})

	_, err := y.FetchQuote(context.Background(), "NOPE")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("404 should be unavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "delisted") {
		t.Fatalf("error should carry the api description: %v", err)
	}
}

func TestYahooFetchQuoteMalformed(t *testing.T) {
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	})

	if _, err := y.FetchQuote(context.Background(), "AAPL"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("malformed body should be unavailable, got %v", err)
	}
}

func TestYahooFetchQuoteBlankSymbol(t *testing.T) {
	y := NewYahoo(YahooOptions{}, noopLogger())
	if _, err := y.FetchQuote(context.Background(), " "); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("blank symbol should be unavailable, got %v", err)
	}
}

func TestYahooFetchHistoryDropsNullSessions(t *testing.T) {
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("range") != "1mo" {
			t.Fatalf("range should be forwarded, got %q", r.URL.Query().Get("range"))
		}
		_, _ = w.Write([]byte(chartTwoSessions))
	})

	bars, err := y.FetchHistory(context.Background(), "AAPL", "1mo")
	if err != nil {
		t.Fatalf("FetchHistory should succeed: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if !bars[0].Open.Equal(decimal.NewFromInt(148)) {
		t.Fatalf("open not decoded: %s", bars[0].Open)
	}
}

func TestQuoteFromBarsZeroPreviousClose(t *testing.T) {
	bars := []Bar{{Close: decimal.Zero}, {Close: decimal.NewFromInt(5)}}
	if _, err := QuoteFromBars("X", bars); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("zero previous close should be unavailable, got %v", err)
	}
}
