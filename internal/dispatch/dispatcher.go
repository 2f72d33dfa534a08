// Package dispatch fans inbound stream events out to the state stores.
//
// All store mutations happen on a single apply goroutine, in arrival order,
// so consumers never observe state produced by reordered events. An
// intermediate queue absorbs bursts between the connection's read loop and
// the apply loop without dropping frames.
package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/achi777/cryptoTrade/internal/connection"
	"github.com/achi777/cryptoTrade/internal/model"
)

// MarketStore receives public market events.
type MarketStore interface {
	ApplyTicker(model.Ticker)
	ApplyBook(model.OrderBook)
	ApplyTrade(symbol string, trade model.TradeEntry)
}

// AccountStore receives private account events.
type AccountStore interface {
	ApplyOrder(model.Order)
	ApplyBalance(model.Balance)
	ApplyNotification(model.Notification)
}

// Stats contains runtime dispatcher statistics.
type Stats struct {
	EventsReceived   int64
	EventsDispatched int64
	ParseErrors      int64
	UnknownEvents    int64
	Queue            QueueStats
}

// tradePayload carries the symbol alongside the tape entry on the wire.
type tradePayload struct {
	model.TradeEntry
	TradingPair string `json:"trading_pair"`
}

// Dispatcher routes raw frames from the connection manager to the stores.
type Dispatcher struct {
	logger  *slog.Logger
	input   <-chan connection.RawMessage
	market  MarketStore
	account AccountStore

	queue *Queue[connection.RawMessage]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.RWMutex
	received   int64
	dispatched int64
	parseErrs  int64
	unknown    int64
}

// NewDispatcher creates a dispatcher reading from input.
func NewDispatcher(input <-chan connection.RawMessage, market MarketStore, account AccountStore, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		logger:  logger,
		input:   input,
		market:  market,
		account: account,
		queue:   NewQueue[connection.RawMessage](256),
	}
}

// Start begins consuming events.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.ctx, d.cancel = context.WithCancel(ctx)

	d.wg.Add(2)
	go d.intakeLoop()
	go d.applyLoop()

	d.logger.Info("dispatcher started")
	return nil
}

// Stop shuts the dispatcher down, draining queued events first.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.logger.Info("stopping dispatcher")

	if d.cancel != nil {
		d.cancel()
	}
	d.queue.Close()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("dispatcher stopped")
	case <-ctx.Done():
		d.logger.Warn("dispatcher stop timed out")
	}
	return nil
}

// Stats returns current statistics.
func (d *Dispatcher) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return Stats{
		EventsReceived:   d.received,
		EventsDispatched: d.dispatched,
		ParseErrors:      d.parseErrs,
		UnknownEvents:    d.unknown,
		Queue:            d.queue.Stats(),
	}
}

// intakeLoop moves frames from the input channel onto the queue.
func (d *Dispatcher) intakeLoop() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return
		case raw, ok := <-d.input:
			if !ok {
				d.logger.Info("input channel closed")
				d.queue.Close()
				return
			}
			d.queue.Push(raw)
		}
	}
}

// applyLoop pops queued frames and applies them one at a time. This is the
// only goroutine that touches the stores.
func (d *Dispatcher) applyLoop() {
	defer d.wg.Done()

	for {
		raw, ok := d.queue.Pop()
		if !ok {
			return
		}
		d.dispatch(raw)
	}
}

// dispatch parses one frame and applies it to the right store.
func (d *Dispatcher) dispatch(raw connection.RawMessage) {
	d.mu.Lock()
	d.received++
	d.mu.Unlock()

	var env connection.Envelope
	if err := json.Unmarshal(raw.Data, &env); err != nil {
		d.logger.Warn("failed to parse event envelope", "error", err)
		d.countParseError()
		return
	}

	switch env.Type {
	case "ticker":
		var ticker model.Ticker
		if err := json.Unmarshal(env.Data, &ticker); err != nil {
			d.logger.Warn("failed to parse ticker", "error", err)
			d.countParseError()
			return
		}
		d.market.ApplyTicker(ticker)

	case "orderbook":
		var book model.OrderBook
		if err := json.Unmarshal(env.Data, &book); err != nil {
			d.logger.Warn("failed to parse orderbook", "error", err)
			d.countParseError()
			return
		}
		d.market.ApplyBook(book)

	case "trade":
		var trade tradePayload
		if err := json.Unmarshal(env.Data, &trade); err != nil {
			d.logger.Warn("failed to parse trade", "error", err)
			d.countParseError()
			return
		}
		d.market.ApplyTrade(trade.TradingPair, trade.TradeEntry)

	case "order_update":
		var order model.Order
		if err := json.Unmarshal(env.Data, &order); err != nil {
			d.logger.Warn("failed to parse order update", "error", err)
			d.countParseError()
			return
		}
		d.account.ApplyOrder(order)

	case "balance_update":
		var balance model.Balance
		if err := json.Unmarshal(env.Data, &balance); err != nil {
			d.logger.Warn("failed to parse balance update", "error", err)
			d.countParseError()
			return
		}
		d.account.ApplyBalance(balance)

	case "notification":
		var notice model.Notification
		if err := json.Unmarshal(env.Data, &notice); err != nil {
			d.logger.Warn("failed to parse notification", "error", err)
			d.countParseError()
			return
		}
		d.account.ApplyNotification(notice)

	case "connected", "authenticated", "auth_error", "subscribed", "unsubscribed":
		// Control frames, handled during the handshake or of no interest.
		return

	default:
		// Unknown kinds are dropped; newer servers may emit kinds this
		// client predates.
		d.logger.Debug("skipping event type", "type", env.Type)
		d.mu.Lock()
		d.unknown++
		d.mu.Unlock()
		return
	}

	d.mu.Lock()
	d.dispatched++
	d.mu.Unlock()
}

func (d *Dispatcher) countParseError() {
	d.mu.Lock()
	d.parseErrs++
	d.mu.Unlock()
}
