package model

// OrderType is how an order executes.
type OrderType string

const (
	OrderTypeMarket    OrderType = "market"
	OrderTypeLimit     OrderType = "limit"
	OrderTypeStopLimit OrderType = "stop_limit"
)

// OrderSide is the direction of an order.
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// OrderStatus is the server-asserted lifecycle state of an order.
type OrderStatus string

const (
	StatusOpen            OrderStatus = "open"
	StatusPartiallyFilled OrderStatus = "partially_filled"
	StatusFilled          OrderStatus = "filled"
	StatusCancelled       OrderStatus = "cancelled"
)

// Terminal reports whether no further fills or cancellations can occur.
func (s OrderStatus) Terminal() bool {
	return s == StatusFilled || s == StatusCancelled
}

// Order is one of the user's orders as asserted by the server. Price is
// empty for market orders (the exchange sends null).
type Order struct {
	ID              int64       `json:"id"`
	ClientOrderID   string      `json:"client_order_id,omitempty"`
	Symbol          string      `json:"trading_pair"`
	Type            OrderType   `json:"order_type"`
	Side            OrderSide   `json:"side"`
	Status          OrderStatus `json:"status"`
	Price           string      `json:"price"`
	Amount          string      `json:"amount"`
	FilledAmount    string      `json:"filled_amount"`
	RemainingAmount string      `json:"remaining_amount"`
	AvgFillPrice    string      `json:"avg_fill_price"`
	Fee             string      `json:"fee"`
	CreatedAt       string      `json:"created_at"`
	FilledAt        string      `json:"filled_at,omitempty"`
}

// Balance is the user's holdings in one currency. Total = available + locked,
// computed server-side; each update replaces the whole record.
type Balance struct {
	Currency  string `json:"currency"`
	Available string `json:"available"`
	Locked    string `json:"locked"`
	Total     string `json:"total"`
}

// Notification is a server-pushed session notice.
type Notification struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

// Profile is the user's account profile.
type Profile struct {
	Email            string `json:"email"`
	Username         string `json:"username"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	TwoFactorEnabled bool   `json:"two_factor_enabled"`
	CreatedAt        string `json:"created_at"`
}
