package rules

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"stockpulse/internal/alert"
	"stockpulse/internal/metrics"
)

// Loader fetches the rule table and normalizes it for one identity.
type Loader struct {
	source  Source
	timeout time.Duration
	logger  zerolog.Logger
}

// NewLoader wraps a Source. A zero timeout leaves the call unbounded.
func NewLoader(source Source, timeout time.Duration, logger zerolog.Logger) *Loader {
	return &Loader{
		source:  source,
		timeout: timeout,
		logger:  logger.With().Str("component", "rule_loader").Logger(),
	}
}

// Load returns the active rules for identity. On any source failure it returns
// an empty, non-nil slice together with the error so callers can warn and move on.
func (l *Loader) Load(ctx context.Context, identity string) ([]alert.AlertRule, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	records, err := l.source.Records(ctx)
	if err != nil {
		l.logger.Warn().Err(err).Msg("rule source unavailable")
		return []alert.AlertRule{}, err
	}

	active := alert.Normalize(records, identity)
	metrics.RulesLoaded.Set(float64(len(active)))
	l.logger.Debug().Int("records", len(records)).Int("active", len(active)).Msg("rules loaded")
	return active, nil
}
