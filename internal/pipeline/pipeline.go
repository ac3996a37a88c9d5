// Package pipeline runs the per-account drop check: session, authentication,
// history scan, availability and pricing.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/osse101/DropTracker_Go/internal/domain"
	"github.com/osse101/DropTracker_Go/internal/event"
	"github.com/osse101/DropTracker_Go/internal/history"
	"github.com/osse101/DropTracker_Go/internal/logger"
	"github.com/osse101/DropTracker_Go/internal/pricing"
	"github.com/osse101/DropTracker_Go/internal/session"
	"github.com/osse101/DropTracker_Go/internal/wallet"
	"github.com/osse101/DropTracker_Go/internal/worker"
)

// Sessions hands out live sessions.
type Sessions interface {
	GetOrCreate(ctx context.Context, accountID uint64, label string) (*session.Session, error)
	Release(sess *session.Session) error
}

// Authenticator logs a session on with stored tokens.
type Authenticator interface {
	AuthenticateWithToken(ctx context.Context, sess *session.Session, acc *domain.Account) error
}

// DropHistory finds drops in an authenticated session's history.
type DropHistory interface {
	GetLastDrop(ctx context.Context, sess *session.Session) (history.LastDropResult, error)
	GetDropsSince(ctx context.Context, sess *session.Session, since time.Time) (history.SinceResult, error)
}

// Wallets resolves a session's currency.
type Wallets interface {
	Currency(ctx context.Context, sess *session.Session) (string, error)
}

// Prices quotes market names.
type Prices interface {
	GetPrices(ctx context.Context, names []string, currency string) (pricing.Result, error)
}

// AccountRemover drops accounts whose refresh token expired.
type AccountRemover interface {
	Remove(ctx context.Context, username string) error
}

// Deps are the collaborators of a Pipeline. Remover and Bus may be nil.
type Deps struct {
	Sessions Sessions
	Auth     Authenticator
	History  DropHistory
	Wallets  Wallets
	Prices   Prices
	Remover  AccountRemover
	Bus      event.Bus
}

// Config configures a Pipeline.
type Config struct {
	MaxParallelAccounts int
	// Since switches to listing every drop newer than this instant.
	Since *time.Time
	// Now is the clock used for availability. Nil means time.Now.
	Now func() time.Time
}

// Pipeline checks accounts independently and in parallel.
type Pipeline struct {
	deps Deps
	cfg  Config
}

// New creates a Pipeline.
func New(deps Deps, cfg Config) *Pipeline {
	if cfg.MaxParallelAccounts < 1 {
		cfg.MaxParallelAccounts = DefaultMaxParallelAccounts
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Pipeline{deps: deps, cfg: cfg}
}

// RunAll runs every account and returns once all of them have finished. A
// failing account never affects the others; its error is kept in its report.
func (p *Pipeline) RunAll(ctx context.Context, accounts []*domain.Account) RunReport {
	runID := logger.GetRunID(ctx)
	if runID == "" {
		runID = logger.GenerateRunID()
		ctx = logger.WithRunID(ctx, runID)
	}
	log := logger.FromContext(ctx)
	log.Info(LogMsgRunStarting, "accounts", len(accounts), "parallel", p.cfg.MaxParallelAccounts)

	reports := make([]AccountReport, len(accounts))
	jobs := make([]worker.Job, 0, len(accounts))
	for i, acc := range accounts {
		i, acc := i, acc // per-iteration copies for go < 1.22 loop semantics
		jobs = append(jobs, worker.JobFunc(func(ctx context.Context) error {
			reports[i] = p.RunAccount(ctx, acc)
			return reports[i].Err
		}))
	}
	worker.Run(ctx, p.cfg.MaxParallelAccounts, jobs...)

	run := RunReport{RunID: runID, Accounts: reports, Finished: p.cfg.Now()}
	log.Info(LogMsgRunCompleted, "succeeded", run.Succeeded(), "failed", run.Failed())
	p.publish(ctx, event.NewRunCompletedEvent(event.RunCompletedPayloadV1{
		RunID:     runID,
		Succeeded: run.Succeeded(),
		Failed:    run.Failed(),
		Report:    run.Format(),
		Finished:  run.Finished,
	}))
	return run
}

// RunAccount runs the whole check for one account.
func (p *Pipeline) RunAccount(ctx context.Context, acc *domain.Account) AccountReport {
	ctx = logger.WithAccount(ctx, acc.Label())
	log := logger.FromContext(ctx)
	log.Info(LogMsgAccountStarting)

	report := p.runAccount(ctx, acc)
	report.Label = acc.Label()

	if report.Err != nil {
		log.Error(LogMsgAccountFailed, "error", report.Err)
	} else {
		log.Info(LogMsgAccountFinished, "summary", report.Summary())
	}

	payload := event.AccountReportedPayloadV1{Label: report.Label, Summary: report.Summary(), Available: report.Available}
	if report.Err != nil {
		payload.Error = report.Err.Error()
	}
	p.publish(ctx, event.NewAccountReportedEvent(logger.GetRunID(ctx), payload))
	return report
}

func (p *Pipeline) runAccount(ctx context.Context, acc *domain.Account) (report AccountReport) {
	log := logger.FromContext(ctx)

	sess, err := p.deps.Sessions.GetOrCreate(ctx, acc.SteamID, acc.Label())
	if err != nil {
		report.Err = fmt.Errorf("open session: %w", err)
		return report
	}
	defer func() {
		if err := p.deps.Sessions.Release(sess); err != nil {
			log.Warn(LogMsgReleaseFailed, "error", err)
		}
	}()

	if err := p.deps.Auth.AuthenticateWithToken(ctx, sess, acc); err != nil {
		if errors.Is(err, domain.ErrRefreshExpired) && p.deps.Remover != nil {
			log.Warn(LogMsgRefreshExpired, "username", acc.Username)
			if rmErr := p.deps.Remover.Remove(ctx, acc.Username); rmErr != nil {
				log.Error(LogMsgRemoveFailed, "error", rmErr)
			}
		}
		report.Err = fmt.Errorf("authenticate: %w", err)
		return report
	}

	now := p.cfg.Now()
	if p.cfg.Since != nil {
		res, err := p.deps.History.GetDropsSince(ctx, sess, *p.cfg.Since)
		if err != nil {
			report.Err = fmt.Errorf("drop history: %w", err)
			return report
		}
		report.Drops = res.Drops
		report.Truncated = res.Truncated
		report.Available = sinceAvailability(res, *p.cfg.Since, now)
	} else {
		res, err := p.deps.History.GetLastDrop(ctx, sess)
		if err != nil {
			report.Err = fmt.Errorf("drop history: %w", err)
			return report
		}
		report.Outcome = res
		drop := res.Drop()
		report.Drops = []domain.NewRankDrop{drop}
		report.Available = drop.Availability(now)
	}

	if err := p.price(ctx, sess, &report); err != nil {
		report.Err = fmt.Errorf("pricing: %w", err)
	}
	return report
}

// sinceAvailability decides availability from a since-scan. Without drops, the
// scanned range is a bound: the whole range back to since, or back to the last
// row read when the page cap cut the scan short.
func sinceAvailability(res history.SinceResult, since, now time.Time) *bool {
	if len(res.Drops) > 0 {
		return res.Drops[0].Availability(now)
	}
	bound := since
	if res.Truncated {
		if res.LastSeen.IsZero() {
			return nil
		}
		bound = res.LastSeen
	}
	return domain.NewRankDrop{UnobtainedSince: &bound}.Availability(now)
}

func (p *Pipeline) price(ctx context.Context, sess *session.Session, report *AccountReport) error {
	var items []*domain.CsgoItem
	var names []string
	for _, d := range report.Drops {
		items = append(items, d.Items...)
		names = append(names, d.MarketNames()...)
	}
	if len(names) == 0 || p.deps.Prices == nil {
		return nil
	}

	code := wallet.DefaultCurrency
	if p.deps.Wallets != nil {
		resolved, err := p.deps.Wallets.Currency(ctx, sess)
		if err != nil {
			logger.FromContext(ctx).Warn(LogMsgCurrencyFallback, "error", err, "currency", code)
		} else {
			code = resolved
		}
	}

	res, err := p.deps.Prices.GetPrices(ctx, names, code)
	if err != nil {
		return err
	}
	pricing.Bind(ctx, items, res.Quotes)
	report.Currency = res.Currency
	report.Unconverted = res.Unconverted
	return nil
}

func (p *Pipeline) publish(ctx context.Context, evt event.Event) {
	if p.deps.Bus == nil {
		return
	}
	if err := p.deps.Bus.Publish(ctx, evt); err != nil {
		logger.FromContext(ctx).Warn(LogMsgPublishFailed, "type", evt.Type, "error", err)
	}
}
