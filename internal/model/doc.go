// Package model defines the domain types shared across the synchronization
// layer: market data (tickers, order books, trades), trading-pair metadata,
// and account state (orders, balances, notifications).
//
// Decimal quantities are carried as strings end to end. The exchange
// serializes every Numeric column as a string and this client never does
// arithmetic on prices or amounts, so parsing would only add failure modes.
package model
