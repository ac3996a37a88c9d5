package domain

// PriceProvider identifies which price source produced a quote.
type PriceProvider int

const (
	ProviderNone PriceProvider = iota
	ProviderPrimary
	ProviderSecondary
)

func (p PriceProvider) String() string {
	switch p {
	case ProviderPrimary:
		return "primary"
	case ProviderSecondary:
		return "secondary"
	default:
		return "none"
	}
}

// PriceQuote is a market value for one market-lookup name.
type PriceQuote struct {
	MarketName string        `json:"market_name"`
	Value      float64       `json:"value"`
	Provider   PriceProvider `json:"provider"`
	Currency   string        `json:"currency"`
}
