package api

import "github.com/achi777/cryptoTrade/internal/model"

// CreateOrderRequest is the body for POST /trading/orders.
type CreateOrderRequest struct {
	Pair          string          `json:"pair"`
	Type          model.OrderType `json:"type"`
	Side          model.OrderSide `json:"side"`
	Amount        string          `json:"amount"`
	Price         string          `json:"price,omitempty"` // empty for market orders
	ClientOrderID string          `json:"client_order_id,omitempty"`
}

// WithdrawalRequest is the body for POST /wallets/withdraw.
type WithdrawalRequest struct {
	Currency string `json:"currency"`
	Address  string `json:"address"`
	Memo     string `json:"memo,omitempty"`
	Amount   string `json:"amount"`
	TOTPCode string `json:"totp_code"`
}

// Withdrawal is the accepted withdrawal as returned by the exchange.
type Withdrawal struct {
	ID        int64  `json:"id"`
	Currency  string `json:"currency"`
	Address   string `json:"address"`
	Amount    string `json:"amount"`
	Fee       string `json:"fee"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// DepositAddress is a per-currency deposit address.
type DepositAddress struct {
	Currency string `json:"currency"`
	Address  string `json:"address"`
	Memo     string `json:"memo,omitempty"`
}

// UpdateProfileRequest is the body for PUT /user/profile.
type UpdateProfileRequest struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// OrderHistoryOptions filter GET /trading/orders.
type OrderHistoryOptions struct {
	Pair    string
	Status  model.OrderStatus
	Page    int
	PerPage int
}

// Response envelopes. The exchange wraps every payload in a keyed object.

type tickersResponse struct {
	Tickers []model.Ticker `json:"tickers"`
}

type tickerResponse struct {
	Ticker model.Ticker `json:"ticker"`
}

type tradesResponse struct {
	Symbol string             `json:"symbol"`
	Trades []model.TradeEntry `json:"trades"`
}

type pairsResponse struct {
	Pairs []model.TradingPair `json:"pairs"`
}

type pairResponse struct {
	Pair model.TradingPair `json:"pair"`
}

type orderResponse struct {
	Message string      `json:"message"`
	Order   model.Order `json:"order"`
}

type ordersResponse struct {
	Orders []model.Order `json:"orders"`
	Total  int           `json:"total"`
}

type balancesResponse struct {
	Balances []model.Balance `json:"balances"`
}

type withdrawalResponse struct {
	Message    string     `json:"message"`
	Withdrawal Withdrawal `json:"withdrawal"`
}

type profileResponse struct {
	User model.Profile `json:"user"`
}
