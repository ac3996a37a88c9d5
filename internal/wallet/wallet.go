// Package wallet resolves the billing currency of an authenticated session.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/currency"

	"github.com/osse101/DropTracker_Go/internal/domain"
	"github.com/osse101/DropTracker_Go/internal/logger"
	"github.com/osse101/DropTracker_Go/internal/session"
)

// ErrUnknownCurrency is returned when the wallet reports a code that is not ISO 4217.
var ErrUnknownCurrency = errors.New("unknown currency code")

// Resolver looks up wallet currencies. It is stateless; results are cached on the session.
type Resolver struct{}

// NewResolver creates a Resolver.
func NewResolver() *Resolver { return &Resolver{} }

// Currency returns the session's wallet currency. The first call per session issues
// the wallet RPC; later calls return the cached value without touching the network.
// An account without a wallet resolves to DefaultCurrency.
func (r *Resolver) Currency(ctx context.Context, sess *session.Session) (string, error) {
	log := logger.FromContext(ctx)

	if w, ok := sess.Wallet(); ok {
		log.Debug(LogMsgWalletCached, "currency", w.Currency)
		return w.Currency, nil
	}
	if !sess.IsAuthenticated() {
		return "", fmt.Errorf("%w: %s", domain.ErrNotAuthenticated, sess.Label())
	}

	details, err := sess.Conn().WalletDetails(ctx)
	if err != nil {
		log.Warn(LogMsgWalletRPCFailed, "error", err)
		return "", fmt.Errorf("wallet details: %w", err)
	}

	code := DefaultCurrency
	if details.HasWallet && details.CurrencyCode != "" {
		unit, err := currency.ParseISO(strings.ToUpper(details.CurrencyCode))
		if err != nil {
			log.Warn(LogMsgInvalidCurrency, "code", details.CurrencyCode)
			return "", fmt.Errorf("%w: %q", ErrUnknownCurrency, details.CurrencyCode)
		}
		code = unit.String()
	} else {
		log.Info(LogMsgNoWallet, "default", DefaultCurrency)
	}

	sess.SetWallet(domain.WalletInfo{Currency: code})
	// A concurrent resolution may have won; the session value is authoritative.
	w, _ := sess.Wallet()
	if acc, ok := sess.Account(); ok {
		acc.Currency = w.Currency
	}
	log.Info(LogMsgWalletResolved, "currency", w.Currency)
	return w.Currency, nil
}
