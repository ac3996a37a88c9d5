// Package auth drives the token, password and QR login flows over a platform session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/osse101/DropTracker_Go/internal/domain"
	"github.com/osse101/DropTracker_Go/internal/event"
	"github.com/osse101/DropTracker_Go/internal/platform"
	"github.com/osse101/DropTracker_Go/internal/session"
)

// AccountSaver persists accounts whose credentials changed.
type AccountSaver interface {
	SaveAccount(ctx context.Context, acc *domain.Account) error
}

// Registrar caches a session once its account id is known.
type Registrar interface {
	Register(sess *session.Session)
}

// Config tunes the coordinator.
type Config struct {
	LogOnTimeout time.Duration
	// Now is the clock used for token expiry checks. Nil means time.Now.
	Now func() time.Time
}

// Coordinator authenticates sessions.
type Coordinator struct {
	registrar Registrar
	saver     AccountSaver
	clock     *TokenClock
	cfg       Config
}

// NewCoordinator creates a Coordinator. saver may be nil.
func NewCoordinator(registrar Registrar, saver AccountSaver, cfg Config) *Coordinator {
	if cfg.LogOnTimeout <= 0 {
		cfg.LogOnTimeout = DefaultLogOnTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Coordinator{
		registrar: registrar,
		saver:     saver,
		clock:     NewTokenClock(),
		cfg:       cfg,
	}
}

// AuthenticateWithToken logs the session on with the account's stored tokens,
// renewing the access token first when it has expired. An expired refresh token
// fails with domain.ErrRefreshExpired before any network call.
func (c *Coordinator) AuthenticateWithToken(ctx context.Context, sess *session.Session, acc *domain.Account) error {
	f := newFlow(ctx, FlowToken, sess.Label())

	if sess.IsAuthenticated() {
		f.log.Debug(LogMsgAlreadyAuthenticated)
		return nil
	}

	now := c.cfg.Now()
	if c.clock.Expired(acc.RefreshToken, now) {
		f.log.Warn(LogMsgRefreshExpired)
		return f.finish(fmt.Errorf("%w: %s", domain.ErrRefreshExpired, acc.Username))
	}

	if c.clock.Expired(acc.AccessToken, now) {
		f.to(StateAwaitingHandshake)
		if err := c.renew(ctx, f, sess, acc); err != nil {
			return f.finish(err)
		}
	}

	return f.finish(c.logOnAndWait(ctx, f, sess, acc, false))
}

func (c *Coordinator) renew(ctx context.Context, f *flow, sess *session.Session, acc *domain.Account) error {
	f.log.Info(LogMsgRenewingAccessToken)

	tokens, err := sess.Conn().RenewAccessToken(ctx, acc.SteamID, acc.RefreshToken)
	switch {
	case errors.Is(err, platform.ErrAccessDenied):
		return fmt.Errorf("%w: renewal rejected", domain.ErrRefreshExpired)
	case err != nil:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &domain.AuthError{Op: OpRenew, Cause: err}
	}

	acc.AccessToken = tokens.AccessToken
	if tokens.RefreshToken != "" {
		acc.RefreshToken = tokens.RefreshToken
	}
	f.log.Info(LogMsgAccessTokenRenewed)
	c.save(ctx, f, acc)
	return nil
}

// AuthenticateWithPassword runs the credential handshake, then logs on with the issued tokens.
func (c *Coordinator) AuthenticateWithPassword(ctx context.Context, sess *session.Session, username, password string) (*domain.Account, error) {
	f := newFlow(ctx, FlowPassword, sess.Label())
	f.to(StateAwaitingHandshake)

	hs, err := sess.Conn().BeginAuthViaCredentials(ctx, username, password)
	if err != nil {
		return nil, f.finish(mapHandshakeError(ctx, err, false))
	}
	creds, err := hs.PollResult(ctx)
	if err != nil {
		return nil, f.finish(mapHandshakeError(ctx, err, false))
	}

	acc := accountFromCredentials(creds, username)
	if err := c.logOnAndWait(ctx, f, sess, acc, true); err != nil {
		return nil, f.finish(err)
	}
	return acc, f.finish(nil)
}

// AuthenticateWithQR runs the QR handshake. onChallenge receives the initial
// challenge URL and every rotation of it.
func (c *Coordinator) AuthenticateWithQR(ctx context.Context, sess *session.Session, onChallenge func(url string)) (*domain.Account, error) {
	f := newFlow(ctx, FlowQR, sess.Label())
	f.to(StateAwaitingHandshake)

	if onChallenge == nil {
		onChallenge = func(string) {}
	}

	hs, err := sess.Conn().BeginAuthViaQR(ctx)
	if err != nil {
		return nil, f.finish(mapHandshakeError(ctx, err, true))
	}
	onChallenge(hs.ChallengeURL())
	hs.OnChallengeRotated(func(url string) {
		f.log.Info(LogMsgChallengeRotated)
		onChallenge(url)
	})

	creds, err := hs.PollResult(ctx)
	if err != nil {
		return nil, f.finish(mapHandshakeError(ctx, err, true))
	}

	acc := accountFromCredentials(creds, "")
	if err := c.logOnAndWait(ctx, f, sess, acc, true); err != nil {
		return nil, f.finish(err)
	}
	return acc, f.finish(nil)
}

func accountFromCredentials(creds platform.Credentials, fallbackName string) *domain.Account {
	name := creds.AccountName
	if name == "" {
		name = fallbackName
	}
	return &domain.Account{
		SteamID:      creds.SteamID,
		Username:     name,
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
	}
}

func mapHandshakeError(ctx context.Context, err error, qr bool) error {
	var jobErr *platform.JobFailedError
	switch {
	case errors.Is(err, platform.ErrInvalidPassword):
		return fmt.Errorf("%w: %w", domain.ErrInvalidPassword, err)
	case errors.Is(err, platform.ErrUserCancelled):
		return fmt.Errorf("%w: %w", domain.ErrUserCancelled, err)
	case ctx.Err() != nil:
		return ctx.Err()
	case qr && errors.As(err, &jobErr):
		return &domain.HandshakeFailedError{Cause: jobErr.Cause}
	default:
		return &domain.AuthError{Op: OpHandshake, Cause: err}
	}
}

// logonOutcome is the single terminal signal of a logon wait.
type logonOutcome struct {
	persona  string
	parental *event.ParentalSettings
	err      error
}

// logOnAndWait sends the logon and waits for the first terminal signal: a LoggedOn
// result or the account info. Both subscriptions share one cancel func; whichever
// fires first wins and later callbacks are no-ops.
func (c *Coordinator) logOnAndWait(ctx context.Context, f *flow, sess *session.Session, acc *domain.Account, fresh bool) error {
	f.to(StateLoggingOn)
	conn := sess.Conn()

	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.LogOnTimeout)
	defer cancel()

	outcome := make(chan logonOutcome, 1)
	var once sync.Once
	settle := func(o logonOutcome) {
		won := false
		once.Do(func() {
			won = true
			outcome <- o
			cancel()
		})
		if !won {
			f.log.Debug(LogMsgLateEventIgnored)
		}
	}

	unsubLoggedOn := conn.Subscribe(event.LoggedOn, func(_ context.Context, e event.Event) error {
		payload, err := event.DecodePayload[event.LoggedOnPayloadV1](e.Payload)
		if err != nil {
			settle(logonOutcome{err: &domain.AuthError{Op: OpLogOn, Cause: err}})
			return err
		}
		settle(classifyLogOn(payload))
		return nil
	})
	defer unsubLoggedOn()

	unsubAccountInfo := conn.Subscribe(event.AccountInfo, func(_ context.Context, e event.Event) error {
		payload, err := event.DecodePayload[event.AccountInfoPayloadV1](e.Payload)
		if err != nil {
			return err
		}
		settle(logonOutcome{persona: payload.PersonaName})
		return nil
	})
	defer unsubAccountInfo()

	if err := conn.LogOn(ctx, platform.LogOnDetails{Username: acc.Username, AccessToken: acc.AccessToken}); err != nil {
		return &domain.AuthError{Op: OpLogOn, Cause: err}
	}
	f.log.Debug(LogMsgLogOnSent)

	var result logonOutcome
	select {
	case result = <-outcome:
	case <-waitCtx.Done():
		select {
		case result = <-outcome:
		default:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &domain.AuthError{Op: OpLogOn, Cause: fmt.Errorf("no logon outcome within %s: %w", c.cfg.LogOnTimeout, context.DeadlineExceeded)}
		}
	}

	if result.err != nil {
		f.log.Warn(LogMsgLogOnFailed, "error", result.err)
		return result.err
	}
	return c.complete(ctx, f, sess, acc, result, fresh)
}

func classifyLogOn(p event.LoggedOnPayloadV1) logonOutcome {
	switch platform.EResult(p.Result) {
	case platform.ResultOK:
		return logonOutcome{parental: p.Parental}
	case platform.ResultAccessDenied:
		return logonOutcome{err: fmt.Errorf("%w: logon access denied", domain.ErrRefreshExpired)}
	default:
		return logonOutcome{err: &domain.AuthError{
			Op:     OpLogOn,
			Result: p.Result,
			Cause:  fmt.Errorf("logon result %s (extended %d)", platform.EResult(p.Result), p.ExtendedResult),
		}}
	}
}

// complete binds the account to the logged-on session and registers it.
func (c *Coordinator) complete(ctx context.Context, f *flow, sess *session.Session, acc *domain.Account, o logonOutcome, fresh bool) error {
	changed := fresh

	if acc.SteamID == 0 {
		acc.SteamID = sess.Conn().SteamID()
		changed = changed || acc.SteamID != 0
	}
	if o.persona != "" && o.persona != acc.DisplayName {
		acc.DisplayName = o.persona
		changed = true
		f.log.Info(LogMsgPersonaUpdated, "display_name", o.persona)
	}
	if o.parental != nil {
		sess.SetParental(*o.parental)
	}

	if !sess.BindAccount(acc) {
		if bound, _ := sess.Account(); bound != acc {
			f.log.Error(LogMsgAccountAlreadyBound, "bound", bound.Username, "username", acc.Username)
			return &domain.AuthError{Op: OpBind, Cause: fmt.Errorf("session already bound to %s", bound.Username)}
		}
	}
	if sess.SteamID() != 0 {
		c.registrar.Register(sess)
	}
	if changed {
		c.save(ctx, f, acc)
	}

	f.log.Info(LogMsgLoggedOn, "steam_id", acc.SteamID)
	return nil
}

func (c *Coordinator) save(ctx context.Context, f *flow, acc *domain.Account) {
	if c.saver == nil {
		return
	}
	if err := c.saver.SaveAccount(ctx, acc); err != nil {
		f.log.Error(LogMsgSaveAccountFailed, "error", err)
	}
}
