// Package config provides configuration management for the market data engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	apperrors "optionflow/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Storage   StorageConfig   `mapstructure:"storage"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Candles   CandlesConfig   `mapstructure:"candles"`
	Symbols   SymbolsConfig   `mapstructure:"symbols"`
}

// StorageConfig holds tick store configuration.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// FeedConfig holds quote source configuration.
type FeedConfig struct {
	Host           string `mapstructure:"host"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// SchedulerConfig holds OI scheduler configuration.
type SchedulerConfig struct {
	RequestsPerSecond    float64 `mapstructure:"requests_per_second"`
	StrikeRange          int     `mapstructure:"strike_range"`
	FetchIntervalSeconds int     `mapstructure:"fetch_interval_seconds"`
}

// CandlesConfig holds candle sweep configuration.
type CandlesConfig struct {
	SweepIntervalSeconds int `mapstructure:"sweep_interval_seconds"`
	ActiveWindowMinutes  int `mapstructure:"active_window_minutes"`
}

// SymbolsConfig classifies the tracked F&O universe.
type SymbolsConfig struct {
	Indices []string `mapstructure:"indices"`
	Stocks  []string `mapstructure:"stocks"`
}

// DefaultIndices is the index universe used when no config file overrides it.
var DefaultIndices = []string{"NIFTY", "BANKNIFTY", "FINNIFTY", "MIDCPNIFTY"}

// DefaultStocks is the stock universe used when no config file overrides it.
var DefaultStocks = []string{
	"RELIANCE", "TCS", "INFY", "HDFCBANK", "ICICIBANK",
	"HINDUNILVR", "ITC", "SBIN", "BHARTIARTL", "KOTAKBANK",
	"LT", "AXISBANK", "BAJFINANCE", "ASIANPAINT", "MARUTI",
	"TITAN", "SUNPHARMA", "ULTRACEMCO", "NESTLEIND", "WIPRO",
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/optionflow"
	}
	return filepath.Join(home, ".config", "optionflow")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		// First run: write a commented template for the user to edit.
		if err := createTemplateConfig(configDir); err != nil {
			return nil, fmt.Errorf("writing config template: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("storage.path", filepath.Join(configDir, "optionflow.db"))
	v.SetDefault("feed.host", "http://127.0.0.1:5000")
	v.SetDefault("feed.timeout_seconds", 10)
	v.SetDefault("scheduler.requests_per_second", 8.0)
	v.SetDefault("scheduler.strike_range", 20)
	v.SetDefault("scheduler.fetch_interval_seconds", 300)
	v.SetDefault("candles.sweep_interval_seconds", 1)
	v.SetDefault("candles.active_window_minutes", 5)
	v.SetDefault("symbols.indices", DefaultIndices)
	v.SetDefault("symbols.stocks", DefaultStocks)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENALGO_API_KEY"); v != "" {
		cfg.Feed.APIKey = v
	}
	if v := os.Getenv("OPENALGO_HOST"); v != "" {
		cfg.Feed.Host = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Storage.Path == "" {
		return fmt.Errorf("%w: storage.path must not be empty", apperrors.ErrConfigInvalid)
	}
	if c.Feed.Host == "" {
		return fmt.Errorf("%w: feed.host must not be empty", apperrors.ErrConfigInvalid)
	}
	if c.Scheduler.RequestsPerSecond <= 0 {
		return fmt.Errorf("%w: scheduler.requests_per_second must be positive", apperrors.ErrConfigInvalid)
	}
	if c.Scheduler.StrikeRange <= 0 {
		return fmt.Errorf("%w: scheduler.strike_range must be positive", apperrors.ErrConfigInvalid)
	}
	if c.Scheduler.FetchIntervalSeconds <= 0 {
		return fmt.Errorf("%w: scheduler.fetch_interval_seconds must be positive", apperrors.ErrConfigInvalid)
	}
	if c.Candles.SweepIntervalSeconds <= 0 {
		return fmt.Errorf("%w: candles.sweep_interval_seconds must be positive", apperrors.ErrConfigInvalid)
	}
	if c.Candles.ActiveWindowMinutes <= 0 {
		return fmt.Errorf("%w: candles.active_window_minutes must be positive", apperrors.ErrConfigInvalid)
	}
	return nil
}

// FeedTimeout returns the quote source HTTP timeout.
func (c *Config) FeedTimeout() time.Duration {
	return time.Duration(c.Feed.TimeoutSeconds) * time.Second
}

// FetchInterval returns the default OI fetch interval.
func (c *Config) FetchInterval() time.Duration {
	return time.Duration(c.Scheduler.FetchIntervalSeconds) * time.Second
}

// SweepInterval returns the candle sweep interval.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Candles.SweepIntervalSeconds) * time.Second
}

// ActiveWindow returns the recent-tick window used for symbol discovery.
func (c *Config) ActiveWindow() time.Duration {
	return time.Duration(c.Candles.ActiveWindowMinutes) * time.Minute
}
