package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/achi777/cryptoTrade/internal/account"
	"github.com/achi777/cryptoTrade/internal/api"
	"github.com/achi777/cryptoTrade/internal/auth"
	"github.com/achi777/cryptoTrade/internal/config"
	"github.com/achi777/cryptoTrade/internal/connection"
	"github.com/achi777/cryptoTrade/internal/exchange"
	"github.com/achi777/cryptoTrade/internal/market"
	"github.com/achi777/cryptoTrade/internal/poller"
	"github.com/achi777/cryptoTrade/internal/subscription"
	"github.com/achi777/cryptoTrade/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/client.local.yaml", "path to config file")
	symbol := flag.String("symbol", "", "instrument to view on startup (e.g. BTC_USDT)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting cryptotrade client",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"api_url", cfg.API.BaseURL,
		"stream_url", cfg.Stream.URL,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Access token source
	tokens, err := auth.FromConfig(cfg.API)
	if err != nil {
		logger.Error("failed to set up token source", "error", err)
		os.Exit(1)
	}

	// Create API client
	apiClient := api.NewClient(
		cfg.API.BaseURL,
		tokens,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
	)

	// In-memory state stores
	marketStore := market.NewStore(market.Config{
		TradeTapeSize: cfg.Market.TradeTapeSize,
		BookDepth:     cfg.Market.BookDepth,
	}, apiClient, logger)

	accountStore := account.NewStore(account.Config{
		NotificationLimit: cfg.Market.NotificationLimit,
	}, logger)

	// Subscription registry and streaming connection
	registry := subscription.NewRegistry(logger)

	connCfg := connection.DefaultManagerConfig()
	connCfg.URL = cfg.Stream.URL
	connCfg.ReconnectAttempts = cfg.Stream.ReconnectAttempts
	connCfg.ReconnectDelay = cfg.Stream.ReconnectDelay
	connCfg.AuthTimeout = cfg.Stream.AuthTimeout
	connCfg.Client.PingInterval = cfg.Stream.PingInterval
	connCfg.Client.PingTimeout = cfg.Stream.PingTimeout
	connCfg.Client.WriteTimeout = cfg.Stream.WriteTimeout
	connCfg.Client.BufferSize = cfg.Stream.BufferSize

	connMgr := connection.NewManager(connCfg, tokens, registry, logger)

	// Session ties REST, stream and stores together
	session := exchange.NewSession(apiClient, connMgr, registry, marketStore, accountStore, logger)

	// Background ticker refresher
	tickerPoller := poller.New(poller.Config{
		Interval: cfg.Poller.Interval,
		Timeout:  cfg.Poller.Timeout,
	}, apiClient, marketStore, logger)

	// Start debug server early so state is observable during startup
	debugServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Debug.Port),
		Handler: createDebugHandler(session, registry, logger),
	}

	go func() {
		logger.Info("starting debug server", "port", cfg.Debug.Port)
		if err := debugServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("debug server error", "error", err)
		}
	}()

	logger.Info("starting session")
	if err := session.Start(ctx); err != nil {
		logger.Error("failed to start session", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		session.Stop(shutdownCtx)
	}()

	if err := tickerPoller.Start(ctx); err != nil {
		logger.Error("failed to start ticker poller", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		tickerPoller.Stop(shutdownCtx)
	}()

	if *symbol != "" {
		if err := session.ViewInstrument(ctx, *symbol); err != nil {
			logger.Warn("failed to view instrument", "symbol", *symbol, "error", err)
		}
	}

	logger.Info("client running",
		"debug_url", fmt.Sprintf("http://localhost:%d/health", cfg.Debug.Port),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	debugServer.Shutdown(shutdownCtx)

	logger.Info("client stopped")
}

// createDebugHandler creates the HTTP handler for health and state inspection.
func createDebugHandler(session *exchange.Session, registry *subscription.Registry, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		state := session.ConnState()

		health := struct {
			Status     string                 `json:"status"`
			Components map[string]interface{} `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]interface{}),
		}

		health.Components["stream"] = state.String()
		if state != connection.StateAuthenticated {
			health.Status = "degraded"
		}

		marketStats := session.Market().Stats()
		health.Components["market_store"] = map[string]interface{}{
			"tickers": marketStats.Tickers,
			"pairs":   marketStats.Pairs,
			"viewed":  marketStats.Viewed,
		}
		if marketStats.Tickers == 0 {
			health.Status = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/debug/state", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"stream":        session.ConnState().String(),
			"subscriptions": registry.Topics(),
			"market":        session.Market().Stats(),
			"account":       session.Account().Stats(),
			"dispatch":      session.DispatchStats(),
		})
	})

	mux.HandleFunc("/debug/tickers", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(session.Market().Tickers())
	})

	return mux
}
