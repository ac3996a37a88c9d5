// Command droptracker reports the weekly rank-drop status of every stored
// account, or adds an account through a password or QR login.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/osse101/DropTracker_Go/internal/accountstore"
	"github.com/osse101/DropTracker_Go/internal/auth"
	"github.com/osse101/DropTracker_Go/internal/config"
	"github.com/osse101/DropTracker_Go/internal/domain"
	"github.com/osse101/DropTracker_Go/internal/event"
	"github.com/osse101/DropTracker_Go/internal/history"
	"github.com/osse101/DropTracker_Go/internal/logger"
	"github.com/osse101/DropTracker_Go/internal/metrics"
	"github.com/osse101/DropTracker_Go/internal/notify"
	"github.com/osse101/DropTracker_Go/internal/pipeline"
	"github.com/osse101/DropTracker_Go/internal/platform/bridge"
	"github.com/osse101/DropTracker_Go/internal/pricing"
	"github.com/osse101/DropTracker_Go/internal/progress"
	"github.com/osse101/DropTracker_Go/internal/session"
	"github.com/osse101/DropTracker_Go/internal/wallet"
	"github.com/osse101/DropTracker_Go/internal/worker"
)

const (
	loginPassword = "password"
	loginQR       = "qr"

	sinceLayout = "2006-01-02"

	// watchDelay leaves the history endpoint time to show drops granted right at the reset.
	watchDelay      = 5 * time.Minute
	shutdownTimeout = 10 * time.Second
)

type options struct {
	login    string
	username string
	since    string
	watch    bool
	notify   bool
}

func main() {
	var opts options
	flag.StringVar(&opts.login, "login", "", "add an account: password or qr")
	flag.StringVar(&opts.username, "username", "", "account name for -login=password")
	flag.StringVar(&opts.since, "since", "", "list every drop since this date (YYYY-MM-DD) instead of the last one")
	flag.BoolVar(&opts.watch, "watch", false, "keep running and check again after every weekly reset")
	flag.BoolVar(&opts.notify, "notify", false, "send the report to the configured Discord webhook")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration failed: %v\n", err)
		os.Exit(1)
	}

	closeLog, err := initLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialise logging: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, opts)
	stop()
	closeLog()

	if err != nil {
		slog.Error("droptracker failed", "error", err)
		os.Exit(1)
	}
}

// app holds the wired components shared by every mode.
type app struct {
	cfg       *config.Config
	store     *accountstore.Store
	sessions  *session.Manager
	auth      *auth.Coordinator
	publisher *event.ResilientPublisher
	collector *metrics.EventMetricsCollector
}

func run(ctx context.Context, cfg *config.Config, opts options) error {
	a, err := newApp(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer a.close()

	switch opts.login {
	case "":
	case loginPassword, loginQR:
		return a.login(ctx, opts)
	default:
		return fmt.Errorf("unknown -login mode %q", opts.login)
	}

	var since *time.Time
	if opts.since != "" {
		t, err := time.ParseInLocation(sinceLayout, opts.since, time.UTC)
		if err != nil {
			return fmt.Errorf("invalid -since: %w", err)
		}
		since = &t
	}

	p := a.newPipeline(ctx, since)
	if !opts.watch {
		return a.check(ctx, p)
	}

	if err := a.check(ctx, p); err != nil {
		slog.Warn("Initial check failed", "error", err)
	}
	w := worker.NewResetWatcher(func(ctx context.Context) error { return a.check(ctx, p) }, watchDelay)
	w.Start(ctx)
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return w.Shutdown(shutdownCtx)
}

func newApp(ctx context.Context, cfg *config.Config, opts options) (*app, error) {
	store, err := accountstore.Open(ctx, cfg.AccountsFile)
	if err != nil {
		return nil, err
	}

	dialer := bridge.NewDialer(bridge.Config{
		URL:          cfg.BridgeURL,
		Password:     cfg.BridgePassword,
		PollInterval: cfg.BridgePollInterval,
	})
	sessions := session.NewManager(dialer, session.Config{
		MaxAttempts:    cfg.ConnectMaxAttempts,
		ConnectTimeout: cfg.ConnectTimeout,
	})
	coordinator := auth.NewCoordinator(sessions, store, auth.Config{LogOnTimeout: cfg.LogOnTimeout})

	bus := event.NewMemoryBus()
	publisher, err := event.NewResilientPublisher(bus, event.RetryMaxAttempts, event.RetryInitialDelay, cfg.DeadLetterPath)
	if err != nil {
		return nil, err
	}
	collector := metrics.NewEventMetricsCollector()
	collector.Register(bus)

	if opts.notify {
		webhook, err := notify.NewWebhook(cfg.DiscordWebhookURL)
		if err != nil {
			return nil, fmt.Errorf("-notify needs DISCORD_WEBHOOK_URL: %w", err)
		}
		webhook.Register(bus)
	}

	return &app{
		cfg:       cfg,
		store:     store,
		sessions:  sessions,
		auth:      coordinator,
		publisher: publisher,
		collector: collector,
	}, nil
}

func (a *app) newPipeline(ctx context.Context, since *time.Time) *pipeline.Pipeline {
	cfg := a.cfg

	fetcher := history.NewFetcher(history.FetcherConfig{
		BaseURL:         cfg.HistoryBaseURL,
		Language:        cfg.HistoryLanguage,
		AppID:           cfg.HistoryAppID,
		RequestInterval: cfg.HistoryRequestInterval,
	})
	paginator := history.NewPaginator(fetcher, progress.NewLogSink(ctx), cfg.HistoryPageCap)

	rates := pricing.NewRateChain(pricing.DefaultRateCacheSize, cfg.ExchangeCacheTTL,
		pricing.NewOpenERClient(cfg.ExchangePrimaryURL, cfg.PricingRequestTimeout),
		pricing.NewFrankfurterClient(cfg.ExchangeSecondaryURL, cfg.PricingRequestTimeout),
	)
	prices := pricing.NewAggregator(
		pricing.NewIndexClient(cfg.PricingPrimaryURL, cfg.PricingRequestTimeout),
		pricing.NewMarketClient(cfg.PricingSecondaryURL, cfg.PricingSecondaryInterval, cfg.PricingRequestTimeout),
		rates,
		pricing.Config{Denylist: cfg.UnsupportedCurrencies, DefaultCurrency: cfg.PricingCurrency},
	)

	return pipeline.New(pipeline.Deps{
		Sessions: a.sessions,
		Auth:     a.auth,
		History:  paginator,
		Wallets:  wallet.NewResolver(),
		Prices:   prices,
		Remover:  a.store,
		Bus:      a.publisher,
	}, pipeline.Config{
		MaxParallelAccounts: cfg.MaxParallelAccounts,
		Since:               since,
	})
}

// check runs every stored account once and prints the report.
func (a *app) check(ctx context.Context, p *pipeline.Pipeline) error {
	accounts := a.store.Accounts()
	if len(accounts) == 0 {
		return errors.New("no accounts stored, add one with -login")
	}

	ctx = logger.WithRunID(ctx, logger.GenerateRunID())
	report := p.RunAll(ctx, accounts)
	fmt.Println(report.Format())

	if err := metrics.WriteTextfile(ctx, a.cfg.MetricsFile); err != nil {
		logger.FromContext(ctx).Warn("Failed to write metrics textfile", "error", err)
	}
	if report.Failed() > 0 && report.Succeeded() == 0 {
		return fmt.Errorf("all %d accounts failed", report.Failed())
	}
	return nil
}

func (a *app) login(ctx context.Context, opts options) error {
	label := opts.username
	if label == "" {
		label = opts.login
	}
	sess, err := a.sessions.GetOrCreate(ctx, 0, label)
	if err != nil {
		return err
	}
	defer func() { _ = a.sessions.Release(sess) }()

	var acc *domain.Account
	switch opts.login {
	case loginPassword:
		if opts.username == "" {
			return errors.New("-login=password needs -username")
		}
		password, err := readPassword(os.Stdin, os.Stdout)
		if err != nil {
			return err
		}
		acc, err = a.auth.AuthenticateWithPassword(ctx, sess, opts.username, password)
		if err != nil {
			return err
		}
	case loginQR:
		acc, err = a.auth.AuthenticateWithQR(ctx, sess, func(url string) {
			fmt.Printf("Scan this link with the mobile app: %s\n", url)
		})
		if err != nil {
			return err
		}
	}

	fmt.Printf("Account %s saved to %s\n", acc.Username, a.cfg.AccountsFile)
	return nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.sessions.CloseAll(); err != nil {
		slog.Warn("Failed to close sessions", "error", err)
	}
	if err := a.publisher.Shutdown(ctx); err != nil {
		slog.Warn("Event publisher did not drain", "error", err)
	}
	a.collector.Close()
}
