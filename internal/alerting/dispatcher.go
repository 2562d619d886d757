package alerting

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"stockpulse/internal/metrics"
)

// DefaultTimeout bounds a single delivery attempt.
const DefaultTimeout = 5 * time.Second

// Delivery outcomes.
const (
	OutcomeSent        = "sent"
	OutcomeFailed      = "failed"
	OutcomeSuppressed  = "suppressed"
	OutcomeCoolingDown = "cooldown"
)

// Channel binds a sink to the credential it was configured with.
type Channel struct {
	Name       string
	Notifier   Notifier
	Credential string
}

// Delivery reports what happened to one channel for one notification.
type Delivery struct {
	Channel string
	Outcome string
	Err     error
}

// DispatcherOptions tune delivery.
type DispatcherOptions struct {
	// Placeholder is the credential value meaning "not configured".
	Placeholder string
	Timeout     time.Duration
	// Cooldown suppresses repeats of the same rule; zero disables it.
	Cooldown time.Duration
	Now      func() time.Time
}

// Dispatcher fans a notification out to every channel. Delivery is best
// effort: one attempt per channel, no retry, failures never propagate.
type Dispatcher struct {
	channels []Channel
	opts     DispatcherOptions
	logger   zerolog.Logger

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewDispatcher builds a dispatcher.
func NewDispatcher(channels []Channel, opts DispatcherOptions, logger zerolog.Logger) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Dispatcher{
		channels: channels,
		opts:     opts,
		logger:   logger.With().Str("component", "dispatcher").Logger(),
		lastSent: make(map[string]time.Time),
	}
}

// Channels lists the configured channel names.
func (d *Dispatcher) Channels() []string {
	names := make([]string, 0, len(d.channels))
	for _, ch := range d.channels {
		names = append(names, ch.Name)
	}
	return names
}

// Dispatch attempts delivery on every channel and reports per-channel outcomes.
func (d *Dispatcher) Dispatch(ctx context.Context, note Notification) []Delivery {
	deliveries := make([]Delivery, 0, len(d.channels))
	if len(d.channels) == 0 {
		return deliveries
	}

	key := note.Rule.Key()
	if d.coolingDown(key) {
		for _, ch := range d.channels {
			deliveries = append(deliveries, d.record(ch.Name, OutcomeCoolingDown, nil))
		}
		d.logger.Debug().Str("rule", key).Msg("notification within cooldown")
		return deliveries
	}

	attempted := false
	for _, ch := range d.channels {
		if d.opts.Placeholder != "" && ch.Credential == d.opts.Placeholder {
			deliveries = append(deliveries, d.record(ch.Name, OutcomeSuppressed, nil))
			continue
		}

		attempted = true
		err := d.attempt(ctx, ch, note)
		if err != nil {
			d.logger.Debug().Err(err).Str("channel", ch.Name).Str("symbol", note.Rule.Symbol).Msg("notification failed")
			deliveries = append(deliveries, d.record(ch.Name, OutcomeFailed, err))
			continue
		}
		deliveries = append(deliveries, d.record(ch.Name, OutcomeSent, nil))
	}

	if attempted {
		d.markSent(key)
	}
	return deliveries
}

func (d *Dispatcher) attempt(ctx context.Context, ch Channel, note Notification) error {
	attemptCtx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	defer cancel()
	return ch.Notifier.Notify(attemptCtx, note)
}

func (d *Dispatcher) record(channel, outcome string, err error) Delivery {
	metrics.NotificationsTotal.WithLabelValues(channel, outcome).Inc()
	return Delivery{Channel: channel, Outcome: outcome, Err: err}
}

func (d *Dispatcher) coolingDown(key string) bool {
	if d.opts.Cooldown <= 0 {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	last, ok := d.lastSent[key]
	return ok && d.opts.Now().Sub(last) < d.opts.Cooldown
}

func (d *Dispatcher) markSent(key string) {
	if d.opts.Cooldown <= 0 {
		return
	}
	d.mu.Lock()
	d.lastSent[key] = d.opts.Now()
	d.mu.Unlock()
}
