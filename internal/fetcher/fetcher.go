package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"stockpulse/internal/alert"
)

// ErrUnavailable is returned for every failed lookup. Network failures, unknown
// tickers and malformed responses are not distinguished.
var ErrUnavailable = errors.New("quote unavailable")

// PriceFeed returns the latest quote for a ticker.
type PriceFeed interface {
	FetchQuote(ctx context.Context, symbol string) (alert.Quote, error)
}

// HistoryFetcher returns daily bars for a ticker over a provider range such as "1mo".
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, symbol, rng string) ([]Bar, error)
}

// Bar is one daily session.
type Bar struct {
	Time   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

var hundred = decimal.NewFromInt(100)

// QuoteFromBars derives a quote from the last two sessions. Price is the last
// close rounded to two decimals; the change is measured from that rounded price.
func QuoteFromBars(symbol string, bars []Bar) (alert.Quote, error) {
	if len(bars) < 2 {
		return alert.Quote{}, unavailable(symbol, fmt.Errorf("need 2 sessions, got %d", len(bars)))
	}

	last := bars[len(bars)-1]
	prev := bars[len(bars)-2]
	if prev.Close.IsZero() {
		return alert.Quote{}, unavailable(symbol, errors.New("previous close is zero"))
	}

	price := last.Close.Round(2)
	change := price.Sub(prev.Close).Div(prev.Close).Mul(hundred).Round(2)

	return alert.Quote{
		Symbol:    symbol,
		Price:     price,
		ChangePct: change,
		Volume:    last.Volume,
		AsOf:      last.Time,
	}, nil
}

func unavailable(symbol string, err error) error {
	if errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, symbol, err)
}
