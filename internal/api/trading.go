package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/achi777/cryptoTrade/internal/model"
)

// CreateOrder submits a new order. The returned order carries the
// server-assigned id and initial status. Not retried: a timeout is
// ambiguous and the streamed order_update settles the outcome.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*model.Order, error) {
	var resp orderResponse
	if err := c.post(ctx, "/trading/orders", req, &resp); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return &resp.Order, nil
}

// CancelOrder cancels an open order and returns its final state.
func (c *Client) CancelOrder(ctx context.Context, orderID int64) (*model.Order, error) {
	path := fmt.Sprintf("/trading/orders/%d/cancel", orderID)

	var resp orderResponse
	if err := c.post(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("cancel order %d: %w", orderID, err)
	}
	return &resp.Order, nil
}

// GetOrder fetches a single order by id.
func (c *Client) GetOrder(ctx context.Context, orderID int64) (*model.Order, error) {
	var resp orderResponse
	if err := c.get(ctx, fmt.Sprintf("/trading/orders/%d", orderID), nil, &resp); err != nil {
		return nil, fmt.Errorf("get order %d: %w", orderID, err)
	}
	return &resp.Order, nil
}

// GetOpenOrders fetches the user's open and partially filled orders,
// newest first. pair may be empty for all instruments.
func (c *Client) GetOpenOrders(ctx context.Context, pair string) ([]model.Order, error) {
	query := url.Values{}
	if pair != "" {
		query.Set("pair", pair)
	}

	var resp ordersResponse
	if err := c.get(ctx, "/trading/orders/open", query, &resp); err != nil {
		return nil, fmt.Errorf("get open orders: %w", err)
	}
	return resp.Orders, nil
}

// GetOrderHistory fetches a page of the user's past orders, newest first.
func (c *Client) GetOrderHistory(ctx context.Context, opts OrderHistoryOptions) ([]model.Order, error) {
	query := url.Values{}
	if opts.Pair != "" {
		query.Set("pair", opts.Pair)
	}
	if opts.Status != "" {
		query.Set("status", string(opts.Status))
	}
	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(opts.PerPage))
	}

	var resp ordersResponse
	if err := c.get(ctx, "/trading/orders", query, &resp); err != nil {
		return nil, fmt.Errorf("get order history: %w", err)
	}
	return resp.Orders, nil
}
