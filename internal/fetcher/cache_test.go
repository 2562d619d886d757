package fetcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stockpulse/internal/alert"
)

type countingFeed struct {
	mu    sync.Mutex
	calls map[string]int
	err   error
}

func (f *countingFeed) FetchQuote(ctx context.Context, symbol string) (alert.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[symbol]++
	if f.err != nil {
		return alert.Quote{}, f.err
	}
	return alert.Quote{Symbol: symbol, Price: decimal.NewFromInt(int64(f.calls[symbol]))}, nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestCachedFeedServesWithinTTL(t *testing.T) {
	feed := &countingFeed{}
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	cache := NewCachedFeed(feed, 20*time.Second, WithClock(clock.Now))

	first, err := cache.FetchQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clock.now = clock.now.Add(19 * time.Second)
	second, _ := cache.FetchQuote(context.Background(), "AAPL")

	if feed.calls["AAPL"] != 1 {
		t.Fatalf("expected one upstream call, got %d", feed.calls["AAPL"])
	}
	if !first.Price.Equal(second.Price) {
		t.Fatalf("cached quote should be reused")
	}

	clock.now = clock.now.Add(time.Second)
	third, _ := cache.FetchQuote(context.Background(), "AAPL")
	if feed.calls["AAPL"] != 2 {
		t.Fatalf("expired entry should refetch, calls=%d", feed.calls["AAPL"])
	}
	if third.Price.Equal(first.Price) {
		t.Fatalf("refetched quote should be fresh")
	}
}

func TestCachedFeedKeysBySymbol(t *testing.T) {
	feed := &countingFeed{}
	cache := NewCachedFeed(feed, time.Minute)

	_, _ = cache.FetchQuote(context.Background(), "AAPL")
	_, _ = cache.FetchQuote(context.Background(), "MSFT")
	_, _ = cache.FetchQuote(context.Background(), "AAPL")

	if feed.calls["AAPL"] != 1 || feed.calls["MSFT"] != 1 {
		t.Fatalf("unexpected calls %#v", feed.calls)
	}
	if cache.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", cache.Len())
	}
}

func TestCachedFeedCachesUnavailable(t *testing.T) {
	feed := &countingFeed{err: unavailable("BAD", errors.New("boom"))}
	cache := NewCachedFeed(feed, time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := cache.FetchQuote(context.Background(), "BAD"); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected unavailable, got %v", err)
		}
	}
	if feed.calls["BAD"] != 1 {
		t.Fatalf("unavailable result should be cached, calls=%d", feed.calls["BAD"])
	}
}

func TestCachedFeedSkipsCancelled(t *testing.T) {
	feed := &countingFeed{err: context.Canceled}
	cache := NewCachedFeed(feed, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _ = cache.FetchQuote(ctx, "AAPL")

	if cache.Len() != 0 {
		t.Fatalf("cancelled lookups must not be cached")
	}
}
