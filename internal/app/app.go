package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"stockpulse/internal/alerting"
	"stockpulse/internal/api"
	"stockpulse/internal/config"
	"stockpulse/internal/fetcher"
	"stockpulse/internal/rules"
	"stockpulse/internal/scheduler"
	"stockpulse/internal/service"
	"stockpulse/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// RunOptions configure the long-running loop.
type RunOptions struct {
	Identity  string
	MaxCycles int
}

// CheckOptions configure a single cycle.
type CheckOptions struct {
	Identity string
	JSON     bool
}

// ChartOptions hold parameters for exporting price history.
type ChartOptions struct {
	Identity  string
	Symbol    string
	Range     string
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// SimulateOptions describe a synthetic rule and quote.
type SimulateOptions struct {
	Identity  string
	Symbol    string
	AlertType string
	MinPrice  string
	MaxPrice  string
	MinVolume string
	Price     string
	ChangePct string
	Volume    int64
}

func (a *App) newRuleSource(_ context.Context) (rules.Source, func(), error) {
	cfg := a.Config.Rules
	noop := func() {}

	switch strings.ToLower(cfg.Backend) {
	case "sheet":
		return rules.NewSheetSource(rules.SheetOptions{
			SheetID:       cfg.SheetID,
			Worksheet:     cfg.Worksheet,
			BaseURL:       cfg.SheetBaseURL,
			Timeout:       cfg.RequestTimeout,
			ConnectionTTL: cfg.ConnectionTTL,
		}, a.Logger), noop, nil
	case "file":
		return rules.NewFileSource(cfg.File), noop, nil
	case "postgres":
		src := storage.NewPostgresRules(a.Config.Database, cfg.ConnectionTTL)
		return src, src.Close, nil
	case "sqlite":
		src := storage.NewSQLiteRulesFromPath(cfg.SQLitePath, cfg.ConnectionTTL)
		return src, src.Close, nil
	default:
		return nil, nil, fmt.Errorf("rules.backend %q is not supported", cfg.Backend)
	}
}

func (a *App) newYahoo() *fetcher.Yahoo {
	cfg := a.Config.Quotes
	return fetcher.NewYahoo(fetcher.YahooOptions{
		BaseURL:    cfg.BaseURL,
		QuoteRange: cfg.Range,
		Timeout:    cfg.RequestTimeout,
		UserAgent:  cfg.UserAgent,
	}, a.Logger)
}

func (a *App) newFeed() fetcher.PriceFeed {
	return fetcher.NewCachedFeed(a.newYahoo(), a.Config.Quotes.CacheTTL)
}

func (a *App) newDispatcher() (*alerting.Dispatcher, func(), error) {
	cfg := a.Config.Alerting
	closers := make([]func(), 0)
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	channels := make([]alerting.Channel, 0, 4)
	if cfg.CallMeBot.Enabled {
		channels = append(channels, alerting.Channel{
			Name:       "whatsapp",
			Notifier:   alerting.NewCallMeBotNotifier(cfg.CallMeBot.Phone, cfg.CallMeBot.APIKey, cfg.CallMeBot.APIBase, cfg.Timeout, a.Logger),
			Credential: cfg.CallMeBot.APIKey,
		})
	}
	if cfg.Telegram.Enabled {
		channels = append(channels, alerting.Channel{
			Name:       "telegram",
			Notifier:   alerting.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.APIBase, cfg.Timeout, a.Logger),
			Credential: cfg.Telegram.BotToken,
		})
	}
	if cfg.NATS.Enabled {
		conn, err := alerting.DialNATS(cfg.NATS.URL, cfg.Timeout)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = conn.Drain() })
		channels = append(channels, alerting.Channel{
			Name:     "nats",
			Notifier: alerting.NewNATSNotifier(conn, cfg.NATS.Subject, a.Logger),
		})
	}
	if cfg.Kafka.Enabled {
		writer := alerting.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Timeout)
		closers = append(closers, func() { _ = writer.Close() })
		channels = append(channels, alerting.Channel{
			Name:     "kafka",
			Notifier: alerting.NewKafkaNotifier(writer, a.Logger),
		})
	}

	d := alerting.NewDispatcher(channels, alerting.DispatcherOptions{
		Placeholder: cfg.PlaceholderKey,
		Timeout:     cfg.Timeout,
		Cooldown:    cfg.Cooldown,
	}, a.Logger)
	return d, closeAll, nil
}

// newService assembles a Service over the configured collaborators. The
// returned cleanup releases connections.
func (a *App) newService(ctx context.Context, identity string, sched *scheduler.Scheduler) (*service.Service, func(), error) {
	source, closeSource, err := a.newRuleSource(ctx)
	if err != nil {
		return nil, nil, err
	}
	cleanup := closeSource

	opts := service.Options{
		Identity:  identity,
		Rules:     rules.NewLoader(source, a.Config.Rules.RequestTimeout, a.Logger),
		Quotes:    a.newFeed(),
		Scheduler: sched,
	}

	if a.Config.Alerting.Enabled {
		d, closeDispatcher, err := a.newDispatcher()
		if err != nil {
			closeSource()
			return nil, nil, err
		}
		opts.Alerts = d
		cleanup = func() {
			closeDispatcher()
			closeSource()
		}
		a.Logger.Info().Strs("channels", d.Channels()).Msg("alerting enabled")
	} else {
		a.Logger.Warn().Msg("alerting disabled; rules are evaluated without notifications")
	}

	svc, err := service.New(opts, a.Logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}

// Run executes the polling loop and, when enabled, the status API.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		StartupDelay: a.Config.Scheduler.StartupDelay,
		MaxCycles:    opts.MaxCycles,
	}, a.Logger)

	svc, cleanup, err := a.newService(ctx, opts.Identity, sched)
	if err != nil {
		return err
	}
	defer cleanup()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info().Str("identity", opts.Identity).Msg("starting monitoring service")
		err := svc.Run(gctx)
		if opts.MaxCycles > 0 && err == nil {
			cancel()
		}
		return err
	})

	if a.Config.HTTP.Enabled {
		staleAfter := 10*a.Config.Scheduler.Interval + a.Config.Rules.RequestTimeout + a.Config.Quotes.RequestTimeout
		server := &http.Server{
			Addr:              a.Config.HTTP.Addr,
			Handler:           api.NewRouter(svc, api.Options{StaleAfter: staleAfter}, a.Logger),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			a.Logger.Info().Str("addr", server.Addr).Msg("status api listening")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("status api: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelShutdown()
			return server.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("monitoring service stopped")
	return nil
}
