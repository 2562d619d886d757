package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"stockpulse/internal/alert"
	"stockpulse/internal/alerting"
	"stockpulse/internal/fetcher"
	"stockpulse/internal/metrics"
	"stockpulse/internal/scheduler"
)

// NoActiveAlerts is shown when the identity has no active rules.
const NoActiveAlerts = "No active alerts right now. Add one to the rule sheet."

var million = decimal.NewFromInt(1_000_000)

// RuleLoader supplies the normalized rules for an identity.
type RuleLoader interface {
	Load(ctx context.Context, identity string) ([]alert.AlertRule, error)
}

// Dispatcher delivers notifications for triggered rules.
type Dispatcher interface {
	Dispatch(ctx context.Context, note alerting.Notification) []alerting.Delivery
}

// Options wires a Service. Alerts may be nil to evaluate without notifying.
type Options struct {
	Identity  string
	Rules     RuleLoader
	Quotes    fetcher.PriceFeed
	Alerts    Dispatcher
	Scheduler *scheduler.Scheduler
	Now       func() time.Time
}

// Card is the rendered state of one rule for one cycle.
type Card struct {
	Symbol            string              `json:"symbol"`
	AlertType         alert.AlertType     `json:"alert_type"`
	Price             decimal.Decimal     `json:"price"`
	ChangePct         decimal.Decimal     `json:"change_pct"`
	Change            string              `json:"change"`
	Target            decimal.Decimal     `json:"target"`
	DistancePct       decimal.NullDecimal `json:"distance_pct"`
	Volume            int64               `json:"volume"`
	VolumeMillions    int64               `json:"volume_millions"`
	MinVolumeMillions int64               `json:"min_volume_millions"`
	Triggered         bool                `json:"triggered"`
	Deliveries        []alerting.Delivery `json:"-"`
}

// Snapshot is the output of one cycle.
type Snapshot struct {
	CycleID  string        `json:"cycle_id"`
	Identity string        `json:"identity"`
	At       time.Time     `json:"at"`
	Duration time.Duration `json:"duration_ns"`
	Cards    []Card        `json:"cards"`
	Warnings []string      `json:"warnings"`
	Info     string        `json:"info,omitempty"`
}

// Service runs polling cycles for one identity.
type Service struct {
	opts   Options
	logger zerolog.Logger

	mu     sync.RWMutex
	latest *Snapshot
}

// New constructs the monitoring service.
func New(opts Options, logger zerolog.Logger) (*Service, error) {
	if opts.Identity == "" {
		return nil, errors.New("service: identity is required")
	}
	if opts.Rules == nil {
		return nil, errors.New("service: rule loader is required")
	}
	if opts.Quotes == nil {
		return nil, errors.New("service: price feed is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		opts:   opts,
		logger: logger.With().Str("component", "service").Logger(),
	}, nil
}

// Run drives cycles until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.opts.Scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.opts.Scheduler.Run(ctx, func(ctx context.Context, _ int) error {
		s.RunCycle(ctx)
		return nil
	})
}

// Latest returns the most recent snapshot.
func (s *Service) Latest() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return Snapshot{}, false
	}
	return *s.latest, true
}

// RunCycle loads rules, then for each rule in order fetches a quote,
// evaluates it, renders a card and notifies when triggered. Failures are
// reported as warnings on the snapshot.
func (s *Service) RunCycle(ctx context.Context) Snapshot {
	started := s.opts.Now()
	snap := Snapshot{
		CycleID:  uuid.NewString(),
		Identity: s.opts.Identity,
		At:       started.UTC(),
		Cards:    make([]Card, 0),
		Warnings: make([]string, 0),
	}
	log := s.logger.With().Str("cycle_id", snap.CycleID).Logger()

	status := "complete"
	rules, err := s.opts.Rules.Load(ctx, s.opts.Identity)
	if err != nil {
		status = "rules_unavailable"
		snap.Warnings = append(snap.Warnings, fmt.Sprintf("rule store unavailable: %v", err))
		log.Warn().Err(err).Msg("rule store unavailable")
	}
	if len(rules) == 0 {
		if err == nil {
			status = "empty"
		}
		snap.Info = NoActiveAlerts
	}

	for _, rule := range rules {
		if ctx.Err() != nil {
			break
		}
		card, warning := s.processRule(ctx, rule, log)
		if warning != "" {
			snap.Warnings = append(snap.Warnings, warning)
			continue
		}
		snap.Cards = append(snap.Cards, card)
	}

	snap.Duration = s.opts.Now().Sub(started)
	metrics.CyclesTotal.WithLabelValues(status).Inc()
	metrics.CycleDuration.Observe(snap.Duration.Seconds())

	log.Info().Int("rules", len(rules)).
		Int("cards", len(snap.Cards)).
		Int("warnings", len(snap.Warnings)).
		Dur("duration", snap.Duration).
		Msg("cycle complete")

	s.mu.Lock()
	s.latest = &snap
	s.mu.Unlock()
	return snap
}

func (s *Service) processRule(ctx context.Context, rule alert.AlertRule, log zerolog.Logger) (Card, string) {
	quote, err := s.opts.Quotes.FetchQuote(ctx, rule.Symbol)
	if err != nil {
		metrics.QuoteLookupsTotal.WithLabelValues("unavailable").Inc()
		log.Debug().Err(err).Str("symbol", rule.Symbol).Msg("quote unavailable")
		return Card{}, fmt.Sprintf("no data found for %s", rule.Symbol)
	}
	metrics.QuoteLookupsTotal.WithLabelValues("ok").Inc()

	result := alert.Evaluate(rule, quote)
	metrics.EvaluationsTotal.WithLabelValues(string(rule.Type), fmt.Sprintf("%t", result.Triggered)).Inc()

	card := NewCard(rule, quote, result)
	if result.Triggered {
		log.Info().Str("symbol", rule.Symbol).
			Str("alert_type", string(rule.Type)).
			Str("price", quote.Price.String()).
			Str("target", result.Target.String()).
			Msg("rule triggered")
		if s.opts.Alerts != nil {
			note := alerting.NewNotification(rule, quote, result, s.opts.Now())
			card.Deliveries = s.opts.Alerts.Dispatch(ctx, note)
		}
	}
	return card, ""
}

// NewCard renders the display fields for a rule and its quote.
func NewCard(rule alert.AlertRule, q alert.Quote, res alert.Result) Card {
	return Card{
		Symbol:            rule.Symbol,
		AlertType:         rule.Type,
		Price:             q.Price,
		ChangePct:         q.ChangePct,
		Change:            alert.SignedPercent(q.ChangePct) + "%",
		Target:            res.Target,
		DistancePct:       res.DistancePct,
		Volume:            q.Volume,
		VolumeMillions:    q.Volume / 1_000_000,
		MinVolumeMillions: rule.MinVolume.Div(million).IntPart(),
		Triggered:         res.Triggered,
	}
}
