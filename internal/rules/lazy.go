package rules

import (
	"context"
	"sync"
	"time"
)

// DefaultConnectionTTL is how long a shared connection is reused before it is
// re-established.
const DefaultConnectionTTL = 30 * time.Minute

// Lazy holds a connection that is opened on first use and re-opened once it is
// older than its TTL.
type Lazy[T any] struct {
	open  func(ctx context.Context) (T, error)
	close func(T)
	ttl   time.Duration
	now   func() time.Time

	mu     sync.Mutex
	value  T
	ready  bool
	opened time.Time
}

// NewLazy builds a lazily opened connection. close may be nil.
func NewLazy[T any](ttl time.Duration, open func(ctx context.Context) (T, error), close func(T)) *Lazy[T] {
	if ttl <= 0 {
		ttl = DefaultConnectionTTL
	}
	return &Lazy[T]{open: open, close: close, ttl: ttl, now: time.Now}
}

// Get returns the live connection, opening or recycling it as needed.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.ready && now.Sub(l.opened) < l.ttl {
		return l.value, nil
	}
	l.release()

	value, err := l.open(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	l.value = value
	l.ready = true
	l.opened = now
	return value, nil
}

// Reset drops the current connection so the next Get reconnects.
func (l *Lazy[T]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.release()
}

// Close releases the connection.
func (l *Lazy[T]) Close() {
	l.Reset()
}

func (l *Lazy[T]) release() {
	if !l.ready {
		return
	}
	if l.close != nil {
		l.close(l.value)
	}
	var zero T
	l.value = zero
	l.ready = false
}
