// Package poller keeps the market-list view fresh. The stream only carries
// tickers for subscribed instruments, so the full ticker list is re-fetched
// over REST on a fixed interval.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/achi777/cryptoTrade/internal/model"
)

// TickerSource fetches the full ticker list. *api.Client satisfies it.
type TickerSource interface {
	GetTickers(ctx context.Context) ([]model.Ticker, error)
}

// TickerSink receives fetched tickers. *market.Store satisfies it.
type TickerSink interface {
	ApplyTickers(tickers []model.Ticker)
}

// TickerSinkFunc is a function adapter for TickerSink.
type TickerSinkFunc func([]model.Ticker)

func (f TickerSinkFunc) ApplyTickers(tickers []model.Ticker) {
	f(tickers)
}

// Config holds poller configuration.
type Config struct {
	Interval time.Duration // Refresh interval (default: 30s)
	Timeout  time.Duration // Per-request timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 30 * time.Second,
		Timeout:  10 * time.Second,
	}
}

// Poller periodically refreshes the ticker list via REST.
type Poller struct {
	cfg    Config
	source TickerSource
	sink   TickerSink
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller.
func New(cfg Config, source TickerSource, sink TickerSink, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	return &Poller{
		cfg:    cfg,
		source: source,
		sink:   sink,
		logger: logger,
	}
}

// Start begins the refresh loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("ticker poller started", "interval", p.cfg.Interval)
	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("ticker poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the refresh loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Refresh immediately on start.
	p.refresh()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.refresh()
		}
	}
}

// refresh fetches and applies the ticker list. A failed fetch keeps the
// previous cached tickers.
func (p *Poller) refresh() {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	start := time.Now()
	tickers, err := p.source.GetTickers(ctx)
	if err != nil {
		p.logger.Warn("ticker refresh failed", "error", err)
		return
	}

	p.sink.ApplyTickers(tickers)

	p.logger.Debug("ticker refresh complete",
		"tickers", len(tickers),
		"duration", time.Since(start),
	)
}
