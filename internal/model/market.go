package model

// Ticker is a per-symbol 24h market summary. Each inbound ticker event
// replaces the whole record for its symbol; fields are never merged.
type Ticker struct {
	Symbol         string `json:"symbol"`
	LastPrice      string `json:"last_price"`
	PriceChange24h string `json:"price_change_24h"`
	High24h        string `json:"high_24h"`
	Low24h         string `json:"low_24h"`
	Volume24h      string `json:"volume_24h"`
}

// PriceLevel is one aggregated level of an order book side.
type PriceLevel struct {
	Price  string `json:"price"`
	Amount string `json:"amount"`
}

// OrderBook is a full-depth book for one symbol. Bids are ordered by price
// descending, asks ascending. The feed emits self-consistent full snapshots,
// so the book is always replaced wholesale, never patched level by level.
type OrderBook struct {
	Symbol    string       `json:"symbol"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Timestamp string       `json:"timestamp"`
}

// TradeEntry is one executed trade on the public tape.
type TradeEntry struct {
	ID        int64  `json:"id"`
	Price     string `json:"price"`
	Amount    string `json:"amount"`
	CreatedAt string `json:"created_at"`
}

// TradingPair is static metadata for one tradeable instrument.
type TradingPair struct {
	Symbol          string `json:"symbol"`
	BaseCurrency    string `json:"base_currency"`
	QuoteCurrency   string `json:"quote_currency"`
	IsActive        bool   `json:"is_active"`
	MinOrderSize    string `json:"min_order_size"`
	MaxOrderSize    string `json:"max_order_size"`
	PricePrecision  int    `json:"price_precision"`
	AmountPrecision int    `json:"amount_precision"`
}
