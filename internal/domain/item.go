package domain

// CsgoItem is one item granted by a drop.
type CsgoItem struct {
	Name       string `json:"name"`
	MarketName string `json:"market_name"`
	Marketable bool   `json:"marketable"`
	IconURL    string `json:"icon_url,omitempty"`
	Color      string `json:"color,omitempty"`

	price WriteOnce[PriceQuote]
}

// BindPrice attaches q to the item. Only the first binding sticks.
func (i *CsgoItem) BindPrice(q PriceQuote) bool {
	return i.price.Set(q)
}

// Price returns the bound quote, if any.
func (i *CsgoItem) Price() (PriceQuote, bool) {
	return i.price.Get()
}
