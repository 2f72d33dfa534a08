package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/achi777/cryptoTrade/internal/model"
)

// GetTickers fetches the 24h summary for every active trading pair.
func (c *Client) GetTickers(ctx context.Context) ([]model.Ticker, error) {
	var resp tickersResponse
	if err := c.get(ctx, "/market/tickers", nil, &resp); err != nil {
		return nil, fmt.Errorf("get tickers: %w", err)
	}
	return resp.Tickers, nil
}

// GetTicker fetches the 24h summary for one symbol.
func (c *Client) GetTicker(ctx context.Context, symbol string) (*model.Ticker, error) {
	var resp tickerResponse
	if err := c.get(ctx, "/market/ticker/"+symbol, nil, &resp); err != nil {
		return nil, fmt.Errorf("get ticker %s: %w", symbol, err)
	}
	return &resp.Ticker, nil
}

// GetOrderBook fetches the aggregated book for a symbol. limit caps the
// number of levels per side; 0 uses the server default.
func (c *Client) GetOrderBook(ctx context.Context, symbol string, limit int) (*model.OrderBook, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var book model.OrderBook
	if err := c.get(ctx, "/market/orderbook/"+symbol, query, &book); err != nil {
		return nil, fmt.Errorf("get orderbook %s: %w", symbol, err)
	}
	return &book, nil
}

// GetRecentTrades fetches the latest executed trades for a symbol,
// newest first.
func (c *Client) GetRecentTrades(ctx context.Context, symbol string, limit int) ([]model.TradeEntry, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var resp tradesResponse
	if err := c.get(ctx, "/market/trades/"+symbol, query, &resp); err != nil {
		return nil, fmt.Errorf("get trades %s: %w", symbol, err)
	}
	return resp.Trades, nil
}

// GetTradingPairs fetches metadata for all trading pairs.
func (c *Client) GetTradingPairs(ctx context.Context) ([]model.TradingPair, error) {
	var resp pairsResponse
	if err := c.get(ctx, "/trading/pairs", nil, &resp); err != nil {
		return nil, fmt.Errorf("get trading pairs: %w", err)
	}
	return resp.Pairs, nil
}

// GetTradingPair fetches metadata for one trading pair.
func (c *Client) GetTradingPair(ctx context.Context, symbol string) (*model.TradingPair, error) {
	var resp pairResponse
	if err := c.get(ctx, "/trading/pairs/"+symbol, nil, &resp); err != nil {
		return nil, fmt.Errorf("get trading pair %s: %w", symbol, err)
	}
	return &resp.Pair, nil
}
