// Package market holds the client-side cache of public market state: all
// tickers, trading pair metadata, and the order book and trade tape for the
// single instrument currently being viewed.
package market

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/achi777/cryptoTrade/internal/model"
)

// Snapshots fetches REST snapshots for the viewed instrument. *api.Client
// satisfies it.
type Snapshots interface {
	GetOrderBook(ctx context.Context, symbol string, limit int) (*model.OrderBook, error)
	GetRecentTrades(ctx context.Context, symbol string, limit int) ([]model.TradeEntry, error)
}

// Config holds market store configuration.
type Config struct {
	TradeTapeSize int // Max trades retained for the viewed instrument
	BookDepth     int // Levels per side requested in book snapshots
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TradeTapeSize: 100,
		BookDepth:     50,
	}
}

// Store is the market state cache. Stream events are applied by the
// dispatcher's single goroutine; readers may come from anywhere.
type Store struct {
	cfg    Config
	rest   Snapshots
	logger *slog.Logger

	mu      sync.RWMutex
	tickers map[string]model.Ticker
	pairs   map[string]model.TradingPair
	viewed  string
	book    *model.OrderBook
	tape    []model.TradeEntry
}

// Stats summarizes current store contents.
type Stats struct {
	Tickers  int
	Pairs    int
	Viewed   string
	TapeSize int
	HasBook  bool
}

// NewStore creates an empty market store.
func NewStore(cfg Config, rest Snapshots, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TradeTapeSize <= 0 {
		cfg.TradeTapeSize = DefaultConfig().TradeTapeSize
	}
	if cfg.BookDepth <= 0 {
		cfg.BookDepth = DefaultConfig().BookDepth
	}

	return &Store{
		cfg:     cfg,
		rest:    rest,
		logger:  logger,
		tickers: make(map[string]model.Ticker),
		pairs:   make(map[string]model.TradingPair),
	}
}

// SetViewed switches the viewed instrument. The previous instrument's book
// and tape are dropped immediately so readers never see another symbol's
// depth while the new snapshot loads.
func (s *Store) SetViewed(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.viewed == symbol {
		return
	}
	s.viewed = symbol
	s.book = nil
	s.tape = nil
}

// Viewed returns the currently viewed symbol, or "" when none.
func (s *Store) Viewed() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewed
}

// LoadSnapshot fetches the book and recent trades for symbol over REST and
// installs them, unless the viewed instrument changed while the fetch was in
// flight; stale responses are discarded. A failed fetch leaves the current
// cache intact.
func (s *Store) LoadSnapshot(ctx context.Context, symbol string) error {
	book, err := s.rest.GetOrderBook(ctx, symbol, s.cfg.BookDepth)
	if err != nil {
		return fmt.Errorf("orderbook snapshot for %s: %w", symbol, err)
	}
	trades, err := s.rest.GetRecentTrades(ctx, symbol, s.cfg.TradeTapeSize)
	if err != nil {
		return fmt.Errorf("trades snapshot for %s: %w", symbol, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.viewed != symbol {
		s.logger.Debug("discarding stale snapshot", "symbol", symbol, "viewed", s.viewed)
		return nil
	}

	if len(trades) > s.cfg.TradeTapeSize {
		trades = trades[:s.cfg.TradeTapeSize]
	}
	s.book = book
	s.tape = append([]model.TradeEntry(nil), trades...)
	return nil
}

// ApplyTicker replaces the ticker record for its symbol. Last write wins,
// whole record; fields are never merged across events.
func (s *Store) ApplyTicker(t model.Ticker) {
	if t.Symbol == "" {
		return
	}
	s.mu.Lock()
	s.tickers[t.Symbol] = t
	s.mu.Unlock()
}

// ApplyTickers bulk-replaces ticker records, used by the REST refresher.
func (s *Store) ApplyTickers(tickers []model.Ticker) {
	s.mu.Lock()
	for _, t := range tickers {
		if t.Symbol != "" {
			s.tickers[t.Symbol] = t
		}
	}
	s.mu.Unlock()
}

// ApplyBook replaces the retained order book wholesale. Books for symbols
// other than the viewed instrument are dropped.
func (s *Store) ApplyBook(book model.OrderBook) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if book.Symbol != s.viewed {
		return
	}
	s.book = &book
}

// ApplyTrade prepends a trade to the viewed instrument's tape, trimming the
// oldest entries past the cap.
func (s *Store) ApplyTrade(symbol string, trade model.TradeEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if symbol != s.viewed {
		return
	}

	s.tape = append([]model.TradeEntry{trade}, s.tape...)
	if len(s.tape) > s.cfg.TradeTapeSize {
		s.tape = s.tape[:s.cfg.TradeTapeSize]
	}
}

// SetPairs replaces the trading pair metadata cache.
func (s *Store) SetPairs(pairs []model.TradingPair) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pairs = make(map[string]model.TradingPair, len(pairs))
	for _, p := range pairs {
		s.pairs[p.Symbol] = p
	}
}

// Pair returns metadata for one trading pair.
func (s *Store) Pair(symbol string) (model.TradingPair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pairs[symbol]
	return p, ok
}

// Pairs returns all trading pairs sorted by symbol.
func (s *Store) Pairs() []model.TradingPair {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pairs := make([]model.TradingPair, 0, len(s.pairs))
	for _, p := range s.pairs {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Symbol < pairs[j].Symbol })
	return pairs
}

// Ticker returns the ticker for one symbol.
func (s *Store) Ticker(symbol string) (model.Ticker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickers[symbol]
	return t, ok
}

// Tickers returns all tickers sorted by symbol.
func (s *Store) Tickers() []model.Ticker {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tickers := make([]model.Ticker, 0, len(s.tickers))
	for _, t := range s.tickers {
		tickers = append(tickers, t)
	}
	sort.Slice(tickers, func(i, j int) bool { return tickers[i].Symbol < tickers[j].Symbol })
	return tickers
}

// Book returns a copy of the viewed instrument's order book, if loaded.
func (s *Store) Book() (model.OrderBook, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.book == nil {
		return model.OrderBook{}, false
	}
	book := *s.book
	book.Bids = append([]model.PriceLevel(nil), s.book.Bids...)
	book.Asks = append([]model.PriceLevel(nil), s.book.Asks...)
	return book, true
}

// Trades returns a copy of the viewed instrument's tape, newest first.
func (s *Store) Trades() []model.TradeEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.TradeEntry(nil), s.tape...)
}

// Stats returns current store statistics.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		Tickers:  len(s.tickers),
		Pairs:    len(s.pairs),
		Viewed:   s.viewed,
		TapeSize: len(s.tape),
		HasBook:  s.book != nil,
	}
}
