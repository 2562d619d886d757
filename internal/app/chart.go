package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"stockpulse/internal/alert"
	"stockpulse/internal/fetcher"
	"stockpulse/internal/rules"
)

// Chart exports daily history for a symbol as CSV and/or PNG. When an
// identity is given, that user's thresholds for the symbol are drawn too.
func (a *App) Chart(ctx context.Context, opts ChartOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	symbol := strings.ToUpper(strings.TrimSpace(opts.Symbol))
	if symbol == "" {
		return errors.New("symbol is required")
	}
	if opts.Range == "" {
		opts.Range = a.Config.Export.Range
	}
	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	bars, err := a.newYahoo().FetchHistory(ctx, symbol, opts.Range)
	if err != nil {
		return fmt.Errorf("fetch %s history: %w", symbol, err)
	}
	if len(bars) == 0 {
		a.Logger.Info().Str("symbol", symbol).Msg("no sessions found for export window")
		return nil
	}

	thresholds := a.thresholdsFor(ctx, opts.Identity, symbol)

	downsampled := downsampleBars(bars, opts.MaxPoints)
	a.Logger.Info().Str("symbol", symbol).
		Int("total", len(bars)).
		Int("exported", len(downsampled)).
		Int("thresholds", len(thresholds)).
		Msg("exporting history")

	if opts.CSVPath != "" {
		if err := writeBarsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeBarsPNG(opts.PNGPath, symbol, downsampled, thresholds); err != nil {
			return err
		}
	}

	return nil
}

type threshold struct {
	Label string
	Value float64
}

// thresholdsFor collects the distinct price levels of the identity's rules
// on symbol. Rule store failures only drop the overlay.
func (a *App) thresholdsFor(ctx context.Context, identity, symbol string) []threshold {
	if identity == "" {
		return nil
	}
	source, closeSource, err := a.newRuleSource(ctx)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("rule source unavailable; exporting without thresholds")
		return nil
	}
	defer closeSource()

	loaded, err := rules.NewLoader(source, a.Config.Rules.RequestTimeout, a.Logger).Load(ctx, identity)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("rules unavailable; exporting without thresholds")
		return nil
	}
	return ruleThresholds(loaded, symbol)
}

func ruleThresholds(loaded []alert.AlertRule, symbol string) []threshold {
	seen := make(map[string]bool)
	out := make([]threshold, 0)
	add := func(label string, rule alert.AlertRule, v float64) {
		key := label + strconv.FormatFloat(v, 'f', -1, 64)
		if v <= 0 || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, threshold{Label: fmt.Sprintf("%s %s", rule.Type, label), Value: v})
	}

	for _, rule := range loaded {
		if !strings.EqualFold(rule.Symbol, symbol) {
			continue
		}
		switch rule.Type {
		case alert.AlertAbove:
			add("max", rule, rule.MaxPrice.InexactFloat64())
		case alert.AlertBelow:
			add("min", rule, rule.MinPrice.InexactFloat64())
		case alert.AlertRange:
			add("min", rule, rule.MinPrice.InexactFloat64())
			add("max", rule, rule.MaxPrice.InexactFloat64())
		}
	}
	return out
}

func downsampleBars(bars []fetcher.Bar, max int) []fetcher.Bar {
	if max <= 0 || len(bars) <= max {
		return bars
	}
	if max == 1 {
		return bars[len(bars)-1:]
	}

	result := make([]fetcher.Bar, 0, max)
	step := float64(len(bars)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(bars) {
			idx = len(bars) - 1
		}
		result = append(result, bars[idx])
	}
	return result
}

func writeBarsCSV(path string, bars []fetcher.Bar) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{"date", "open", "high", "low", "close", "volume"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, bar := range bars {
		record := []string{
			bar.Time.UTC().Format("2006-01-02"),
			bar.Open.StringFixed(2),
			bar.High.StringFixed(2),
			bar.Low.StringFixed(2),
			bar.Close.StringFixed(2),
			strconv.FormatInt(bar.Volume, 10),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeBarsPNG(path, symbol string, bars []fetcher.Bar, thresholds []threshold) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(bars))
	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, bar := range bars {
		x[i] = bar.Time
		closes[i] = bar.Close.InexactFloat64()
		volumes[i] = float64(bar.Volume) / 1_000_000
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}

	series := []chart.Series{
		chart.TimeSeries{
			Name:    symbol + " close",
			XValues: x,
			YValues: closes,
		},
		chart.TimeSeries{
			Name:    "Volume (M)",
			XValues: x,
			YValues: volumes,
			YAxis:   chart.YAxisSecondary,
		},
	}
	for _, th := range thresholds {
		level := make([]float64, len(bars))
		for i := range level {
			level[i] = th.Value
		}
		series = append(series, chart.TimeSeries{
			Name:    fmt.Sprintf("%s %.2f", th.Label, th.Value),
			XValues: x,
			YValues: level,
			Style: chart.Style{
				StrokeDashArray: []float64{5.0, 5.0},
			},
		})
	}

	graph := chart.Chart{
		Title:  symbol,
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Price ($)",
			ValueFormatter: priceFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Volume (M)",
			ValueFormatter: priceFormatter,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
