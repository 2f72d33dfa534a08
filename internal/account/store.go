// Package account holds the client-side cache of private account state:
// open orders, order history, balances, and notifications.
//
// The server is the only authority on order status. Stream events assert
// whole order records; the store's job is to keep each order id in exactly
// one of the open set or the history, whatever order events arrive in.
package account

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/achi777/cryptoTrade/internal/model"
)

// Config holds account store configuration.
type Config struct {
	NotificationLimit int // Max retained notifications
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{NotificationLimit: 50}
}

// Store is the account state cache. Stream events are applied by the
// dispatcher's single goroutine; readers may come from anywhere.
type Store struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.RWMutex
	open     map[int64]model.Order
	history  []model.Order // newest first
	balances map[string]model.Balance
	notices  []model.Notification // newest first
}

// Stats summarizes current store contents.
type Stats struct {
	OpenOrders    int
	HistoryOrders int
	Balances      int
	Notifications int
}

// NewStore creates an empty account store.
func NewStore(cfg Config, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.NotificationLimit <= 0 {
		cfg.NotificationLimit = DefaultConfig().NotificationLimit
	}

	return &Store{
		cfg:      cfg,
		logger:   logger,
		open:     make(map[int64]model.Order),
		balances: make(map[string]model.Balance),
	}
}

// ReplaceOrders installs the initial REST load: the open set and the most
// recent history page.
func (s *Store) ReplaceOrders(open, history []model.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.open = make(map[int64]model.Order, len(open))
	for _, o := range open {
		if !o.Status.Terminal() {
			s.open[o.ID] = o
		}
	}
	s.history = append([]model.Order(nil), history...)
}

// RecordNewOrder adds an order just accepted by the REST API to the open
// set. An order the server already reports terminal is ignored; the streamed
// order_update carries it into history.
func (s *Store) RecordNewOrder(o model.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.Status.Terminal() {
		return
	}
	s.open[o.ID] = o
}

// ApplyOrder applies a streamed order_update. The asserted status decides
// placement:
//
//   - non-terminal: update in place in the open set, or insert if unknown.
//     If the id is already in history a stale event arrived late; it is
//     dropped so a finished order is never resurrected.
//   - terminal: remove from the open set and record in history, deduped
//     by id with the newer assertion winning.
func (s *Store) ApplyOrder(o model.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.Status.Terminal() {
		delete(s.open, o.ID)
		s.prependHistory(o)
		return
	}

	if s.inHistory(o.ID) {
		s.logger.Debug("ignoring non-terminal update for finished order", "order_id", o.ID)
		return
	}
	s.open[o.ID] = o
}

// RemoveCancelled moves an order out of the open set after a successful
// cancel request, without waiting for the stream to confirm. A later
// streamed cancelled event for the same id is absorbed by ApplyOrder's
// dedupe, so calling this is idempotent with the stream.
func (s *Store) RemoveCancelled(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.open[id]
	if !ok {
		return
	}
	delete(s.open, id)
	o.Status = model.StatusCancelled
	s.prependHistory(o)
}

// ApplyBalance replaces the balance record for its currency.
func (s *Store) ApplyBalance(b model.Balance) {
	if b.Currency == "" {
		return
	}
	s.mu.Lock()
	s.balances[b.Currency] = b
	s.mu.Unlock()
}

// ReplaceBalances installs the initial REST balance load.
func (s *Store) ReplaceBalances(balances []model.Balance) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.balances = make(map[string]model.Balance, len(balances))
	for _, b := range balances {
		if b.Currency != "" {
			s.balances[b.Currency] = b
		}
	}
}

// ApplyNotification prepends a notification, trimming past the cap.
func (s *Store) ApplyNotification(n model.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notices = append([]model.Notification{n}, s.notices...)
	if len(s.notices) > s.cfg.NotificationLimit {
		s.notices = s.notices[:s.cfg.NotificationLimit]
	}
}

// OpenOrders returns the open set sorted newest first by id.
func (s *Store) OpenOrders() []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]model.Order, 0, len(s.open))
	for _, o := range s.open {
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID > orders[j].ID })
	return orders
}

// OpenOrder returns one open order by id.
func (s *Store) OpenOrder(id int64) (model.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.open[id]
	return o, ok
}

// History returns finished orders, newest first.
func (s *Store) History() []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Order(nil), s.history...)
}

// Balance returns the balance for one currency.
func (s *Store) Balance(currency string) (model.Balance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.balances[currency]
	return b, ok
}

// Balances returns all balances sorted by currency.
func (s *Store) Balances() []model.Balance {
	s.mu.RLock()
	defer s.mu.RUnlock()

	balances := make([]model.Balance, 0, len(s.balances))
	for _, b := range s.balances {
		balances = append(balances, b)
	}
	sort.Slice(balances, func(i, j int) bool { return balances[i].Currency < balances[j].Currency })
	return balances
}

// Notifications returns retained notifications, newest first.
func (s *Store) Notifications() []model.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Notification(nil), s.notices...)
}

// Stats returns current store statistics.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		OpenOrders:    len(s.open),
		HistoryOrders: len(s.history),
		Balances:      len(s.balances),
		Notifications: len(s.notices),
	}
}

// prependHistory records a finished order, newest first, deduped by id.
// The incoming record replaces any existing entry: the newer assertion is
// authoritative. Must be called with the lock held.
func (s *Store) prependHistory(o model.Order) {
	for i := range s.history {
		if s.history[i].ID == o.ID {
			s.history = append(s.history[:i], s.history[i+1:]...)
			break
		}
	}
	s.history = append([]model.Order{o}, s.history...)
}

// inHistory reports whether an id is already recorded as finished.
// Must be called with the lock held.
func (s *Store) inHistory(id int64) bool {
	for i := range s.history {
		if s.history[i].ID == id {
			return true
		}
	}
	return false
}
