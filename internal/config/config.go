package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ClientConfig is the root configuration for a client session.
type ClientConfig struct {
	API    APIConfig    `yaml:"api"`
	Stream StreamConfig `yaml:"stream"`
	Market MarketConfig `yaml:"market"`
	Poller PollerConfig `yaml:"poller"`
	Debug  DebugConfig  `yaml:"debug"`
}

// APIConfig holds REST collaborator settings.
type APIConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`

	// Access token location. Exactly one of these should be set; the token
	// itself is refreshed by an external collaborator.
	TokenPath string `yaml:"token_path"`
	TokenEnv  string `yaml:"token_env"`
}

// StreamConfig holds streaming transport settings.
type StreamConfig struct {
	URL               string        `yaml:"url"`
	ReconnectAttempts int           `yaml:"reconnect_attempts"`
	ReconnectDelay    time.Duration `yaml:"reconnect_delay"`
	AuthTimeout       time.Duration `yaml:"auth_timeout"`
	PingInterval      time.Duration `yaml:"ping_interval"`
	PingTimeout       time.Duration `yaml:"ping_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	BufferSize        int           `yaml:"buffer_size"`
}

// MarketConfig holds in-memory store bounds.
type MarketConfig struct {
	TradeTapeSize     int `yaml:"trade_tape_size"`
	NotificationLimit int `yaml:"notification_limit"`
	BookDepth         int `yaml:"book_depth"`
}

// PollerConfig holds the background ticker refresher settings.
type PollerConfig struct {
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// DebugConfig holds the local debug/health endpoint settings.
type DebugConfig struct {
	Port int `yaml:"port"`
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*ClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg ClientConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config and applies default values.
func LoadWithDefaults(path string) (*ClientConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate loads config, applies defaults, and validates.
func LoadAndValidate(path string) (*ClientConfig, error) {
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
