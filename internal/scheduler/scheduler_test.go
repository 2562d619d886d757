package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRunStopsAfterMaxCycles(t *testing.T) {
	s := New(Options{Interval: time.Millisecond, MaxCycles: 3}, zerolog.Nop())

	var seqs []int
	err := s.Run(context.Background(), func(_ context.Context, seq int) error {
		seqs = append(seqs, seq)
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(seqs) != 3 || seqs[0] != 1 || seqs[2] != 3 {
		t.Fatalf("unexpected ticks %v", seqs)
	}
}

func TestRunFirstTickIsImmediate(t *testing.T) {
	s := New(Options{Interval: time.Hour, MaxCycles: 1}, zerolog.Nop())

	start := time.Now()
	if err := s.Run(context.Background(), func(context.Context, int) error { return nil }); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("first tick should not wait for the interval")
	}
}

func TestRunContinuesAfterTickError(t *testing.T) {
	s := New(Options{Interval: time.Millisecond, MaxCycles: 2}, zerolog.Nop())

	calls := 0
	err := s.Run(context.Background(), func(context.Context, int) error {
		calls++
		return errors.New("boom")
	})
	if err != nil {
		t.Fatalf("tick errors should not stop the loop: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s := New(Options{Interval: time.Hour}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	ticked := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(context.Context, int) error {
			ticked <- struct{}{}
			return nil
		})
	}()

	<-ticked
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunTicksNeverOverlap(t *testing.T) {
	s := New(Options{Interval: time.Millisecond, MaxCycles: 5}, zerolog.Nop())

	var mu sync.Mutex
	active := 0
	overlap := false
	_ = s.Run(context.Background(), func(context.Context, int) error {
		mu.Lock()
		active++
		if active > 1 {
			overlap = true
		}
		mu.Unlock()

		time.Sleep(2 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
		return nil
	})
	if overlap {
		t.Fatal("ticks overlapped")
	}
}

func TestNewDefaultsInterval(t *testing.T) {
	s := New(Options{}, zerolog.Nop())
	if s.opts.Interval != DefaultInterval {
		t.Fatalf("expected default interval, got %s", s.opts.Interval)
	}
}
