package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockpulse/internal/alert"
	"stockpulse/internal/fetcher"
	"stockpulse/internal/service"
)

// SimulateAlert evaluates a synthetic rule against a synthetic quote and
// dispatches through the configured channels when it triggers.
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions, out io.Writer) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is disabled")
	}
	if strings.TrimSpace(opts.Symbol) == "" {
		return errors.New("symbol is required")
	}
	if opts.Identity == "" {
		opts.Identity = "simulation"
	}

	price, err := decimal.NewFromString(opts.Price)
	if err != nil {
		return fmt.Errorf("invalid price: %w", err)
	}
	change := decimal.Zero
	if opts.ChangePct != "" {
		if change, err = decimal.NewFromString(opts.ChangePct); err != nil {
			return fmt.Errorf("invalid change: %w", err)
		}
	}

	dispatcher, closeDispatcher, err := a.newDispatcher()
	if err != nil {
		return err
	}
	defer closeDispatcher()
	if len(dispatcher.Channels()) == 0 {
		return errors.New("no alert channel configured")
	}

	rule := alert.NormalizeRecord(alert.Record{
		alert.ColumnOwner:     opts.Identity,
		alert.ColumnSymbol:    strings.ToUpper(strings.TrimSpace(opts.Symbol)),
		alert.ColumnAlertType: opts.AlertType,
		alert.ColumnMinPrice:  opts.MinPrice,
		alert.ColumnMaxPrice:  opts.MaxPrice,
		alert.ColumnMinVolume: opts.MinVolume,
		alert.ColumnStatus:    alert.StatusActive,
	})
	quote := alert.Quote{
		Symbol:    rule.Symbol,
		Price:     price.Round(2),
		ChangePct: change.Round(2),
		Volume:    opts.Volume,
		AsOf:      time.Now().UTC(),
	}

	svc, err := service.New(service.Options{
		Identity: opts.Identity,
		Rules:    staticRules{rule},
		Quotes:   staticQuote{quote},
		Alerts:   dispatcher,
	}, a.Logger)
	if err != nil {
		return err
	}

	snap := svc.RunCycle(ctx)
	if err := writeSnapshot(out, snap); err != nil {
		return err
	}
	if len(snap.Cards) == 1 && !snap.Cards[0].Triggered {
		fmt.Fprintln(out, "rule did not trigger; nothing dispatched")
	}
	return nil
}

type staticRules []alert.AlertRule

func (s staticRules) Load(context.Context, string) ([]alert.AlertRule, error) {
	return s, nil
}

type staticQuote struct {
	quote alert.Quote
}

func (s staticQuote) FetchQuote(_ context.Context, symbol string) (alert.Quote, error) {
	if !strings.EqualFold(symbol, s.quote.Symbol) {
		return alert.Quote{}, fmt.Errorf("%w: %s", fetcher.ErrUnavailable, symbol)
	}
	return s.quote, nil
}

var (
	_ service.RuleLoader = staticRules(nil)
	_ fetcher.PriceFeed  = staticQuote{}
)
