package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultBaseURL           = "https://api.cryptotrade.local/api/v1"
	DefaultStreamURL         = "wss://stream.cryptotrade.local/ws"
	DefaultAPITimeout        = 30 * time.Second
	DefaultMaxRetries        = 3
	DefaultReconnectAttempts = 5
	DefaultReconnectDelay    = 1 * time.Second
	DefaultAuthTimeout       = 10 * time.Second
	DefaultPingInterval      = 30 * time.Second
	DefaultPingTimeout       = 60 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
	DefaultStreamBufferSize  = 1024
	DefaultTradeTapeSize     = 100
	DefaultNotificationLimit = 50
	DefaultBookDepth         = 50
	DefaultPollInterval      = 30 * time.Second
	DefaultPollTimeout       = 10 * time.Second
	DefaultDebugPort         = 8080
)

func (c *ClientConfig) applyDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}

	if c.Stream.URL == "" {
		c.Stream.URL = DefaultStreamURL
	}
	if c.Stream.ReconnectAttempts == 0 {
		c.Stream.ReconnectAttempts = DefaultReconnectAttempts
	}
	if c.Stream.ReconnectDelay == 0 {
		c.Stream.ReconnectDelay = DefaultReconnectDelay
	}
	if c.Stream.AuthTimeout == 0 {
		c.Stream.AuthTimeout = DefaultAuthTimeout
	}
	if c.Stream.PingInterval == 0 {
		c.Stream.PingInterval = DefaultPingInterval
	}
	if c.Stream.PingTimeout == 0 {
		c.Stream.PingTimeout = DefaultPingTimeout
	}
	if c.Stream.WriteTimeout == 0 {
		c.Stream.WriteTimeout = DefaultWriteTimeout
	}
	if c.Stream.BufferSize == 0 {
		c.Stream.BufferSize = DefaultStreamBufferSize
	}

	if c.Market.TradeTapeSize == 0 {
		c.Market.TradeTapeSize = DefaultTradeTapeSize
	}
	if c.Market.NotificationLimit == 0 {
		c.Market.NotificationLimit = DefaultNotificationLimit
	}
	if c.Market.BookDepth == 0 {
		c.Market.BookDepth = DefaultBookDepth
	}

	if c.Poller.Interval == 0 {
		c.Poller.Interval = DefaultPollInterval
	}
	if c.Poller.Timeout == 0 {
		c.Poller.Timeout = DefaultPollTimeout
	}

	if c.Debug.Port == 0 {
		c.Debug.Port = DefaultDebugPort
	}
}
