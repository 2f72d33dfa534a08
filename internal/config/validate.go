package config

import "fmt"

// Validate checks the configuration for missing or inconsistent fields.
// Defaults should be applied first.
func (c *ClientConfig) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.Stream.URL == "" {
		return fmt.Errorf("stream.url is required")
	}
	if c.API.TokenPath == "" && c.API.TokenEnv == "" {
		return fmt.Errorf("one of api.token_path or api.token_env is required")
	}
	if c.API.TokenPath != "" && c.API.TokenEnv != "" {
		return fmt.Errorf("api.token_path and api.token_env are mutually exclusive")
	}
	if c.Stream.ReconnectAttempts < 1 {
		return fmt.Errorf("stream.reconnect_attempts must be at least 1")
	}
	if c.Stream.ReconnectDelay <= 0 {
		return fmt.Errorf("stream.reconnect_delay must be positive")
	}
	if c.Market.TradeTapeSize < 1 {
		return fmt.Errorf("market.trade_tape_size must be at least 1")
	}
	if c.Market.NotificationLimit < 1 {
		return fmt.Errorf("market.notification_limit must be at least 1")
	}
	return nil
}
