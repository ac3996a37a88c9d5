// Package pricing resolves market values for drop items across price providers
// and converts them into the account's currency.
package pricing

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/osse101/DropTracker_Go/internal/domain"
	"github.com/osse101/DropTracker_Go/internal/logger"
	"github.com/osse101/DropTracker_Go/internal/metrics"
)

// RateLookup converts between currencies. *RateChain implements it.
type RateLookup interface {
	Rate(ctx context.Context, from, to string) (float64, bool)
}

// Config configures an Aggregator.
type Config struct {
	// Denylist holds currencies the primary provider cannot price in.
	Denylist []string
	// DefaultCurrency is fetched instead of a denied currency.
	DefaultCurrency string
}

// Result is the outcome of a GetPrices call.
type Result struct {
	Quotes []domain.PriceQuote
	// Currency is the denomination of every quote.
	Currency string
	// Unconverted is set when the requested currency was denied and no exchange
	// rate was available; quotes are then in the default currency.
	Unconverted bool
}

// Aggregator combines a batch primary source, a per-item secondary source and
// an exchange-rate lookup.
type Aggregator struct {
	primary   BatchSource
	secondary ItemSource
	rates     RateLookup
	denylist  map[string]struct{}
	fallback  string
}

// NewAggregator creates an Aggregator. secondary may be nil.
func NewAggregator(primary BatchSource, secondary ItemSource, rates RateLookup, cfg Config) *Aggregator {
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = DefaultCurrency
	}
	if cfg.Denylist == nil {
		cfg.Denylist = DefaultDenylist
	}
	deny := make(map[string]struct{}, len(cfg.Denylist))
	for _, c := range cfg.Denylist {
		deny[strings.ToUpper(c)] = struct{}{}
	}
	return &Aggregator{
		primary:   primary,
		secondary: secondary,
		rates:     rates,
		denylist:  deny,
		fallback:  strings.ToUpper(cfg.DefaultCurrency),
	}
}

// Supports reports whether the primary provider prices in currency directly.
func (a *Aggregator) Supports(currency string) bool {
	_, denied := a.denylist[strings.ToUpper(currency)]
	return !denied
}

// GetPrices quotes every name in currency. Provider failures never fail the call;
// names nobody could price are simply absent. The only error is context cancellation.
func (a *Aggregator) GetPrices(ctx context.Context, names []string, currency string) (Result, error) {
	log := logger.FromContext(ctx)
	currency = strings.ToUpper(currency)
	names = dedupe(names)

	fetchIn := currency
	rate := 1.0
	convert := false
	result := Result{Currency: currency}

	if !a.Supports(currency) {
		fetchIn = a.fallback
		log.Info(LogMsgCurrencyDenied, "currency", currency, "fetching", fetchIn)
		if a.rates != nil {
			rate, convert = a.rates.Rate(ctx, fetchIn, currency)
		}
		if !convert {
			log.Warn(LogMsgUnconverted, "requested", currency, "currency", fetchIn)
			result.Currency = fetchIn
			result.Unconverted = true
		}
	}

	if len(names) == 0 {
		return result, ctx.Err()
	}

	primary, err := a.primary.Prices(ctx, names, fetchIn)
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		log.Error(LogMsgPrimaryFailed, "error", err, "items", len(names))
		metrics.PriceLookups.WithLabelValues(providerLabelPrimary, metrics.ResultError).Inc()
		primary = nil
	}

	var missing []string
	for _, name := range names {
		if value, ok := primary[name]; ok && value > 0 {
			metrics.PriceLookups.WithLabelValues(providerLabelPrimary, metrics.ResultOK).Inc()
			result.Quotes = append(result.Quotes, domain.PriceQuote{
				MarketName: name, Value: value, Provider: domain.ProviderPrimary, Currency: fetchIn,
			})
			continue
		}
		if err == nil {
			metrics.PriceLookups.WithLabelValues(providerLabelPrimary, metrics.ResultMiss).Inc()
		}
		missing = append(missing, name)
	}

	if len(missing) > 0 && a.secondary != nil {
		quotes, err := a.fromSecondary(ctx, missing, fetchIn)
		if err != nil {
			return result, err
		}
		result.Quotes = append(result.Quotes, quotes...)
	}

	if convert {
		for i := range result.Quotes {
			result.Quotes[i].Value *= rate
			result.Quotes[i].Currency = currency
		}
		log.Info(LogMsgConverted, "from", fetchIn, "to", currency, "rate", rate, "quotes", len(result.Quotes))
	}
	return result, nil
}

func (a *Aggregator) fromSecondary(ctx context.Context, names []string, currency string) ([]domain.PriceQuote, error) {
	log := logger.FromContext(ctx)
	var quotes []domain.PriceQuote

	for _, name := range names {
		log.Debug(LogMsgPrimaryMissing, "item", name)
		value, ok, err := a.secondary.Price(ctx, name, currency)
		switch {
		case ctx.Err() != nil:
			return quotes, ctx.Err()
		case errors.Is(err, ErrUnsupportedCurrency):
			log.Warn(LogMsgSecondaryUnsupported, "currency", currency, "items", len(names))
			return quotes, nil
		case err != nil:
			log.Warn(LogMsgSecondaryFailed, "item", name, "error", err)
			metrics.PriceLookups.WithLabelValues(providerLabelSecondary, metrics.ResultError).Inc()
		case !ok:
			log.Warn(LogMsgSecondaryNoPrice, "item", name)
			metrics.PriceLookups.WithLabelValues(providerLabelSecondary, metrics.ResultMiss).Inc()
		default:
			metrics.PriceLookups.WithLabelValues(providerLabelSecondary, metrics.ResultOK).Inc()
			quotes = append(quotes, domain.PriceQuote{
				MarketName: name, Value: value, Provider: domain.ProviderSecondary, Currency: currency,
			})
		}
	}
	return quotes, nil
}

// Bind attaches each quote to the items whose market name matches exactly.
// It returns the number of prices bound.
func Bind(ctx context.Context, items []*domain.CsgoItem, quotes []domain.PriceQuote) int {
	log := logger.FromContext(ctx)

	byName := make(map[string][]*domain.CsgoItem, len(items))
	for _, item := range items {
		byName[item.MarketName] = append(byName[item.MarketName], item)
	}

	bound := 0
	for _, q := range quotes {
		matches, ok := byName[q.MarketName]
		if !ok {
			log.Warn(LogMsgQuoteUnmatched, "market_name", q.MarketName)
			continue
		}
		for _, item := range matches {
			if item.BindPrice(q) {
				bound++
			} else {
				log.Warn(LogMsgQuoteAlreadyBound, "market_name", q.MarketName)
			}
		}
	}
	return bound
}

func dedupe(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != "" && !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}
