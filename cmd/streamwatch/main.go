// streamwatch connects to the exchange WebSocket, subscribes to one
// instrument and streams parsed events to the console.
// Usage: go run ./cmd/streamwatch --config configs/client.local.yaml --symbol BTC_USDT
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/achi777/cryptoTrade/internal/auth"
	"github.com/achi777/cryptoTrade/internal/config"
	"github.com/achi777/cryptoTrade/internal/connection"
	"github.com/achi777/cryptoTrade/internal/model"
	"github.com/achi777/cryptoTrade/internal/subscription"
)

func main() {
	configPath := flag.String("config", "configs/client.example.yaml", "path to config file")
	symbol := flag.String("symbol", "BTC_USDT", "instrument to watch")
	verbose := flag.Bool("verbose", false, "print full message JSON")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Load config
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	tokens, err := auth.FromConfig(cfg.API)
	if err != nil {
		logger.Error("failed to set up token source", "error", err)
		os.Exit(1)
	}

	registry := subscription.NewRegistry(logger)

	connCfg := connection.DefaultManagerConfig()
	connCfg.URL = cfg.Stream.URL

	connMgr := connection.NewManager(connCfg, tokens, registry, logger)

	// Subscribe before connecting; the registry replays after the handshake.
	if err := registry.SubscribeInstrument(*symbol); err != nil {
		logger.Error("failed to subscribe", "error", err)
		os.Exit(1)
	}

	logger.Info("connecting", "url", cfg.Stream.URL, "symbol", *symbol)
	if err := connMgr.Connect(ctx); err != nil {
		logger.Error("failed to connect", "error", err)
		os.Exit(1)
	}

	go printEvents(ctx, connMgr.Events(), *verbose)

	logger.Info("streaming started - press Ctrl+C to stop")

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")
	connMgr.Disconnect()
	logger.Info("shutdown complete")
}

func printEvents(ctx context.Context, events <-chan connection.RawMessage, verbose bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			printEvent(msg, verbose)
		}
	}
}

func printEvent(msg connection.RawMessage, verbose bool) {
	var env connection.Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		fmt.Printf("[UNPARSED] %s\n", msg.Data)
		return
	}

	if verbose {
		fmt.Printf("[%s] %s\n", env.Type, env.Data)
		return
	}

	switch env.Type {
	case "ticker":
		var t model.Ticker
		if err := json.Unmarshal(env.Data, &t); err == nil {
			fmt.Printf("[TICKER] symbol=%s price=%s change=%s%% vol=%s\n",
				t.Symbol, t.LastPrice, t.PriceChange24h, t.Volume24h)
		}
	case "orderbook":
		var b model.OrderBook
		if err := json.Unmarshal(env.Data, &b); err == nil {
			fmt.Printf("[ORDERBOOK] symbol=%s bids=%d asks=%d\n",
				b.Symbol, len(b.Bids), len(b.Asks))
		}
	case "trade":
		var t struct {
			model.TradeEntry
			TradingPair string `json:"trading_pair"`
		}
		if err := json.Unmarshal(env.Data, &t); err == nil {
			fmt.Printf("[TRADE] symbol=%s id=%d price=%s amount=%s at=%s\n",
				t.TradingPair, t.ID, t.Price, t.Amount, t.CreatedAt)
		}
	default:
		fmt.Printf("[%s] %s\n", env.Type, env.Data)
	}
}
