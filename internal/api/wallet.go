package api

import (
	"context"
	"fmt"

	"github.com/achi777/cryptoTrade/internal/model"
)

// GetBalances fetches the user's balance in every active currency.
func (c *Client) GetBalances(ctx context.Context) ([]model.Balance, error) {
	var resp balancesResponse
	if err := c.get(ctx, "/user/balances", nil, &resp); err != nil {
		return nil, fmt.Errorf("get balances: %w", err)
	}
	return resp.Balances, nil
}

// GetDepositAddress fetches (or lets the server generate) the deposit
// address for a currency.
func (c *Client) GetDepositAddress(ctx context.Context, currency string) (*DepositAddress, error) {
	var addr DepositAddress
	if err := c.get(ctx, "/wallets/"+currency+"/address", nil, &addr); err != nil {
		return nil, fmt.Errorf("get deposit address %s: %w", currency, err)
	}
	return &addr, nil
}

// CreateWithdrawal submits a withdrawal request. Not retried; see CreateOrder.
func (c *Client) CreateWithdrawal(ctx context.Context, req WithdrawalRequest) (*Withdrawal, error) {
	var resp withdrawalResponse
	if err := c.post(ctx, "/wallets/withdraw", req, &resp); err != nil {
		return nil, fmt.Errorf("create withdrawal: %w", err)
	}
	return &resp.Withdrawal, nil
}
