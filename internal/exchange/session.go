// Package exchange wires the REST client, the streaming connection, and the
// state stores into one client session.
package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/achi777/cryptoTrade/internal/account"
	"github.com/achi777/cryptoTrade/internal/api"
	"github.com/achi777/cryptoTrade/internal/connection"
	"github.com/achi777/cryptoTrade/internal/dispatch"
	"github.com/achi777/cryptoTrade/internal/market"
	"github.com/achi777/cryptoTrade/internal/model"
	"github.com/achi777/cryptoTrade/internal/subscription"
)

// Rest is the REST surface the session uses. *api.Client satisfies it.
type Rest interface {
	GetTickers(ctx context.Context) ([]model.Ticker, error)
	GetTradingPairs(ctx context.Context) ([]model.TradingPair, error)
	GetOpenOrders(ctx context.Context, pair string) ([]model.Order, error)
	GetOrderHistory(ctx context.Context, opts api.OrderHistoryOptions) ([]model.Order, error)
	GetBalances(ctx context.Context) ([]model.Balance, error)
	CreateOrder(ctx context.Context, req api.CreateOrderRequest) (*model.Order, error)
	CancelOrder(ctx context.Context, orderID int64) (*model.Order, error)
	GetDepositAddress(ctx context.Context, currency string) (*api.DepositAddress, error)
	CreateWithdrawal(ctx context.Context, req api.WithdrawalRequest) (*api.Withdrawal, error)
	GetProfile(ctx context.Context) (*model.Profile, error)
	UpdateProfile(ctx context.Context, req api.UpdateProfileRequest) (*model.Profile, error)
}

// Conn is the streaming connection surface the session uses.
// *connection.Manager satisfies it.
type Conn interface {
	Connect(ctx context.Context) error
	Disconnect() error
	State() connection.State
	StateChanges() <-chan connection.State
	Events() <-chan connection.RawMessage
}

// PlaceOrderRequest describes a new order.
type PlaceOrderRequest struct {
	Symbol string
	Type   model.OrderType
	Side   model.OrderSide
	Amount string
	Price  string // empty for market orders
}

// Session is the top-level exchange client session.
type Session struct {
	rest       Rest
	conn       Conn
	registry   *subscription.Registry
	market     *market.Store
	account    *account.Store
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger

	mu     sync.Mutex
	viewed string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSession assembles a session from its parts.
func NewSession(rest Rest, conn Conn, registry *subscription.Registry, mkt *market.Store, acct *account.Store, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		rest:       rest,
		conn:       conn,
		registry:   registry,
		market:     mkt,
		account:    acct,
		dispatcher: dispatch.NewDispatcher(conn.Events(), mkt, acct, logger),
		logger:     logger,
	}
}

// Start brings the session up: dispatcher first so no events are lost, then
// the streaming connection, then the public REST bootstrap. Account state
// loads once the stream authenticates, and reloads after every reconnect.
func (s *Session) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	if err := s.dispatcher.Start(s.ctx); err != nil {
		return fmt.Errorf("start dispatcher: %w", err)
	}

	s.wg.Add(1)
	go s.watchState()

	if err := s.conn.Connect(s.ctx); err != nil {
		// The manager keeps retrying in the background; the session is
		// usable for cached reads meanwhile.
		s.logger.Warn("stream connect failed", "error", err)
	}

	s.loadPublic(s.ctx)

	s.logger.Info("session started")
	return nil
}

// Stop tears the session down.
func (s *Session) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	if err := s.conn.Disconnect(); err != nil {
		s.logger.Warn("disconnect failed", "error", err)
	}
	if err := s.dispatcher.Stop(ctx); err != nil {
		return err
	}

	s.wg.Wait()
	s.logger.Info("session stopped")
	return nil
}

// ViewInstrument makes symbol the viewed instrument: the previous
// instrument's streams are unsubscribed, the book and tape are reset, the
// new streams are subscribed, and a REST snapshot is loaded. The streams
// stay subscribed even when the snapshot fetch fails; the returned error
// reports the fetch result.
func (s *Session) ViewInstrument(ctx context.Context, symbol string) error {
	s.mu.Lock()
	prev := s.viewed
	s.viewed = symbol
	s.mu.Unlock()

	if prev != "" && prev != symbol {
		if err := s.registry.UnsubscribeInstrument(prev); err != nil {
			s.logger.Warn("unsubscribe failed", "symbol", prev, "error", err)
		}
	}

	s.market.SetViewed(symbol)

	if err := s.registry.SubscribeInstrument(symbol); err != nil {
		s.logger.Warn("subscribe failed", "symbol", symbol, "error", err)
	}

	return s.market.LoadSnapshot(ctx, symbol)
}

// LeaveInstrument drops the viewed instrument and its streams.
func (s *Session) LeaveInstrument() {
	s.mu.Lock()
	prev := s.viewed
	s.viewed = ""
	s.mu.Unlock()

	if prev == "" {
		return
	}
	if err := s.registry.UnsubscribeInstrument(prev); err != nil {
		s.logger.Warn("unsubscribe failed", "symbol", prev, "error", err)
	}
	s.market.SetViewed("")
}

// PlaceOrder submits an order. The order is recorded locally only after the
// server accepts it; a failed request leaves no trace.
func (s *Session) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*model.Order, error) {
	clientID := uuid.NewString()

	order, err := s.rest.CreateOrder(ctx, api.CreateOrderRequest{
		Pair:          req.Symbol,
		Type:          req.Type,
		Side:          req.Side,
		Amount:        req.Amount,
		Price:         req.Price,
		ClientOrderID: clientID,
	})
	if err != nil {
		return nil, err
	}

	o := *order
	if o.ClientOrderID == "" {
		o.ClientOrderID = clientID
	}
	s.account.RecordNewOrder(o)
	return &o, nil
}

// CancelOrder cancels an open order. Local state changes only after the
// server confirms; the later streamed cancelled event is absorbed as a
// duplicate.
func (s *Session) CancelOrder(ctx context.Context, orderID int64) error {
	if _, err := s.rest.CancelOrder(ctx, orderID); err != nil {
		return err
	}
	s.account.RemoveCancelled(orderID)
	return nil
}

// Withdraw submits a withdrawal request.
func (s *Session) Withdraw(ctx context.Context, req api.WithdrawalRequest) (*api.Withdrawal, error) {
	return s.rest.CreateWithdrawal(ctx, req)
}

// DepositAddress fetches the deposit address for a currency.
func (s *Session) DepositAddress(ctx context.Context, currency string) (*api.DepositAddress, error) {
	return s.rest.GetDepositAddress(ctx, currency)
}

// Profile fetches the user profile.
func (s *Session) Profile(ctx context.Context) (*model.Profile, error) {
	return s.rest.GetProfile(ctx)
}

// UpdateProfile updates the user profile.
func (s *Session) UpdateProfile(ctx context.Context, req api.UpdateProfileRequest) (*model.Profile, error) {
	return s.rest.UpdateProfile(ctx, req)
}

// Market returns the market state store.
func (s *Session) Market() *market.Store { return s.market }

// Account returns the account state store.
func (s *Session) Account() *account.Store { return s.account }

// ConnState returns the streaming connection state.
func (s *Session) ConnState() connection.State { return s.conn.State() }

// DispatchStats returns dispatcher statistics.
func (s *Session) DispatchStats() dispatch.Stats { return s.dispatcher.Stats() }

// watchState reloads server-owned state after every successful
// authentication, including the first: open orders, history, and balances
// are re-fetched, and the viewed instrument's snapshot is refreshed.
func (s *Session) watchState() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case st, ok := <-s.conn.StateChanges():
			if !ok {
				return
			}
			if st != connection.StateAuthenticated {
				continue
			}

			s.loadAccount(s.ctx)

			s.mu.Lock()
			viewed := s.viewed
			s.mu.Unlock()
			if viewed != "" {
				if err := s.market.LoadSnapshot(s.ctx, viewed); err != nil {
					s.logger.Warn("snapshot refresh failed", "symbol", viewed, "error", err)
				}
			}
		}
	}
}

// loadPublic bootstraps pair metadata and the ticker list over REST.
func (s *Session) loadPublic(ctx context.Context) {
	if pairs, err := s.rest.GetTradingPairs(ctx); err != nil {
		s.logger.Warn("trading pairs load failed", "error", err)
	} else {
		s.market.SetPairs(pairs)
	}

	if tickers, err := s.rest.GetTickers(ctx); err != nil {
		s.logger.Warn("ticker list load failed", "error", err)
	} else {
		s.market.ApplyTickers(tickers)
	}
}

// loadAccount replaces account state with the server's current truth.
func (s *Session) loadAccount(ctx context.Context) {
	open, err := s.rest.GetOpenOrders(ctx, "")
	if err != nil {
		s.logger.Warn("open orders load failed", "error", err)
		return
	}
	history, err := s.rest.GetOrderHistory(ctx, api.OrderHistoryOptions{})
	if err != nil {
		s.logger.Warn("order history load failed", "error", err)
		return
	}
	s.account.ReplaceOrders(open, history)

	if balances, err := s.rest.GetBalances(ctx); err != nil {
		s.logger.Warn("balances load failed", "error", err)
	} else {
		s.account.ReplaceBalances(balances)
	}
}
