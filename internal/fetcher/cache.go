package fetcher

import (
	"context"
	"sync"
	"time"

	"stockpulse/internal/alert"
	"stockpulse/internal/metrics"
)

// DefaultCacheTTL bounds how long a lookup result is reused.
const DefaultCacheTTL = 20 * time.Second

// CachedFeed is a read-through cache in front of a PriceFeed keyed by symbol.
// Unavailable results are cached as well.
type CachedFeed struct {
	feed PriceFeed
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	quote   alert.Quote
	err     error
	expires time.Time
}

// CacheOption customises a CachedFeed.
type CacheOption func(*CachedFeed)

// WithClock overrides the time source.
func WithClock(now func() time.Time) CacheOption {
	return func(c *CachedFeed) {
		c.now = now
	}
}

// NewCachedFeed wraps feed with a TTL cache.
func NewCachedFeed(feed PriceFeed, ttl time.Duration, opts ...CacheOption) *CachedFeed {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &CachedFeed{
		feed:    feed,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchQuote serves from cache while the entry is fresh, else calls the feed.
func (c *CachedFeed) FetchQuote(ctx context.Context, symbol string) (alert.Quote, error) {
	now := c.now()

	c.mu.Lock()
	entry, ok := c.entries[symbol]
	c.mu.Unlock()
	if ok && now.Before(entry.expires) {
		metrics.QuoteCacheTotal.WithLabelValues("hit").Inc()
		return entry.quote, entry.err
	}
	metrics.QuoteCacheTotal.WithLabelValues("miss").Inc()

	quote, err := c.feed.FetchQuote(ctx, symbol)
	if ctx.Err() != nil {
		// cancellation says nothing about the ticker
		return quote, err
	}

	c.mu.Lock()
	c.sweep(now)
	c.entries[symbol] = cacheEntry{quote: quote, err: err, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return quote, err
}

// Len reports the number of cached symbols.
func (c *CachedFeed) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *CachedFeed) sweep(now time.Time) {
	for symbol, entry := range c.entries {
		if !now.Before(entry.expires) {
			delete(c.entries, symbol)
		}
	}
}

var _ PriceFeed = (*CachedFeed)(nil)
