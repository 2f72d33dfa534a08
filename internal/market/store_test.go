package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/achi777/cryptoTrade/internal/model"
)

// fakeSnapshots serves canned REST snapshot responses.
type fakeSnapshots struct {
	mu     sync.Mutex
	book   model.OrderBook
	trades []model.TradeEntry
	err    error

	// beforeReply runs while the fetch is "in flight", before the
	// response is returned.
	beforeReply func()
}

func (f *fakeSnapshots) GetOrderBook(ctx context.Context, symbol string, limit int) (*model.OrderBook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.beforeReply != nil {
		f.beforeReply()
		f.beforeReply = nil
	}
	if f.err != nil {
		return nil, f.err
	}
	book := f.book
	return &book, nil
}

func (f *fakeSnapshots) GetRecentTrades(ctx context.Context, symbol string, limit int) ([]model.TradeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.trades, nil
}

func btcBook() model.OrderBook {
	return model.OrderBook{
		Symbol:    "BTC_USDT",
		Bids:      []model.PriceLevel{{Price: "49999.00", Amount: "0.5"}},
		Asks:      []model.PriceLevel{{Price: "50001.00", Amount: "0.3"}},
		Timestamp: "2024-01-15T10:30:00",
	}
}

func TestApplyTickerLastWriteWins(t *testing.T) {
	s := NewStore(DefaultConfig(), &fakeSnapshots{}, nil)

	s.ApplyTicker(model.Ticker{Symbol: "BTC_USDT", LastPrice: "50000.00", High24h: "51000.00"})
	// The second event omits the high; the whole record is replaced, not
	// merged, so the high must come back empty.
	s.ApplyTicker(model.Ticker{Symbol: "BTC_USDT", LastPrice: "50100.00"})

	ticker, ok := s.Ticker("BTC_USDT")
	require.True(t, ok)
	assert.Equal(t, "50100.00", ticker.LastPrice)
	assert.Empty(t, ticker.High24h)
}

func TestApplyTickerIgnoresEmptySymbol(t *testing.T) {
	s := NewStore(DefaultConfig(), &fakeSnapshots{}, nil)
	s.ApplyTicker(model.Ticker{LastPrice: "1.00"})
	assert.Empty(t, s.Tickers())
}

func TestTradeTapeCap(t *testing.T) {
	s := NewStore(DefaultConfig(), &fakeSnapshots{}, nil)
	s.SetViewed("BTC_USDT")

	for i := 1; i <= 150; i++ {
		s.ApplyTrade("BTC_USDT", model.TradeEntry{ID: int64(i), Price: fmt.Sprintf("%d", i)})
	}

	tape := s.Trades()
	require.Len(t, tape, 100)
	assert.Equal(t, int64(150), tape[0].ID, "newest trade first")
	assert.Equal(t, int64(51), tape[99].ID, "oldest 50 trimmed")
}

func TestApplyTradeOtherSymbolDropped(t *testing.T) {
	s := NewStore(DefaultConfig(), &fakeSnapshots{}, nil)
	s.SetViewed("BTC_USDT")

	s.ApplyTrade("ETH_USDT", model.TradeEntry{ID: 1})
	assert.Empty(t, s.Trades())
}

func TestApplyBookOnlyForViewed(t *testing.T) {
	s := NewStore(DefaultConfig(), &fakeSnapshots{}, nil)
	s.SetViewed("BTC_USDT")

	s.ApplyBook(model.OrderBook{Symbol: "ETH_USDT"})
	_, ok := s.Book()
	assert.False(t, ok, "book for another symbol must be dropped")

	s.ApplyBook(btcBook())
	book, ok := s.Book()
	require.True(t, ok)
	assert.Equal(t, "BTC_USDT", book.Symbol)
	assert.Len(t, book.Bids, 1)
}

func TestSetViewedClearsBookAndTape(t *testing.T) {
	s := NewStore(DefaultConfig(), &fakeSnapshots{}, nil)
	s.SetViewed("BTC_USDT")
	s.ApplyBook(btcBook())
	s.ApplyTrade("BTC_USDT", model.TradeEntry{ID: 1})

	s.SetViewed("ETH_USDT")

	_, ok := s.Book()
	assert.False(t, ok)
	assert.Empty(t, s.Trades())
	assert.Equal(t, "ETH_USDT", s.Viewed())
}

func TestLoadSnapshot(t *testing.T) {
	rest := &fakeSnapshots{
		book:   btcBook(),
		trades: []model.TradeEntry{{ID: 2, Price: "50000.00"}, {ID: 1, Price: "49999.00"}},
	}
	s := NewStore(DefaultConfig(), rest, nil)
	s.SetViewed("BTC_USDT")

	require.NoError(t, s.LoadSnapshot(context.Background(), "BTC_USDT"))

	book, ok := s.Book()
	require.True(t, ok)
	assert.Equal(t, "BTC_USDT", book.Symbol)

	tape := s.Trades()
	require.Len(t, tape, 2)
	assert.Equal(t, int64(2), tape[0].ID)
}

func TestLoadSnapshotStaleResponseDiscarded(t *testing.T) {
	rest := &fakeSnapshots{book: btcBook()}
	s := NewStore(DefaultConfig(), rest, nil)
	s.SetViewed("BTC_USDT")

	// The user switches instruments while the fetch is in flight.
	rest.beforeReply = func() { s.SetViewed("ETH_USDT") }

	require.NoError(t, s.LoadSnapshot(context.Background(), "BTC_USDT"))

	_, ok := s.Book()
	assert.False(t, ok, "stale snapshot must not be installed")
	assert.Equal(t, "ETH_USDT", s.Viewed())
}

func TestLoadSnapshotFailureKeepsCache(t *testing.T) {
	rest := &fakeSnapshots{book: btcBook()}
	s := NewStore(DefaultConfig(), rest, nil)
	s.SetViewed("BTC_USDT")
	require.NoError(t, s.LoadSnapshot(context.Background(), "BTC_USDT"))

	rest.mu.Lock()
	rest.err = errors.New("server unavailable")
	rest.mu.Unlock()

	err := s.LoadSnapshot(context.Background(), "BTC_USDT")
	require.Error(t, err)

	_, ok := s.Book()
	assert.True(t, ok, "failed refresh keeps the previous book")
}

func TestApplyTickersBulk(t *testing.T) {
	s := NewStore(DefaultConfig(), &fakeSnapshots{}, nil)

	s.ApplyTickers([]model.Ticker{
		{Symbol: "ETH_USDT", LastPrice: "3000.00"},
		{Symbol: "BTC_USDT", LastPrice: "50000.00"},
	})

	tickers := s.Tickers()
	require.Len(t, tickers, 2)
	assert.Equal(t, "BTC_USDT", tickers[0].Symbol, "sorted by symbol")
}

func TestPairsMetadata(t *testing.T) {
	s := NewStore(DefaultConfig(), &fakeSnapshots{}, nil)

	s.SetPairs([]model.TradingPair{
		{Symbol: "BTC_USDT", BaseCurrency: "BTC", QuoteCurrency: "USDT", IsActive: true},
	})

	pair, ok := s.Pair("BTC_USDT")
	require.True(t, ok)
	assert.Equal(t, "BTC", pair.BaseCurrency)

	_, ok = s.Pair("DOGE_USDT")
	assert.False(t, ok)
}

func TestStats(t *testing.T) {
	s := NewStore(DefaultConfig(), &fakeSnapshots{}, nil)
	s.SetViewed("BTC_USDT")
	s.ApplyTicker(model.Ticker{Symbol: "BTC_USDT", LastPrice: "1"})
	s.ApplyBook(btcBook())
	s.ApplyTrade("BTC_USDT", model.TradeEntry{ID: 1})

	stats := s.Stats()
	assert.Equal(t, 1, stats.Tickers)
	assert.Equal(t, "BTC_USDT", stats.Viewed)
	assert.Equal(t, 1, stats.TapeSize)
	assert.True(t, stats.HasBook)
}
