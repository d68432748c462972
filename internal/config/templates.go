package config

import (
	"os"
	"path/filepath"
)

const configTemplate = `# optionflow configuration

[storage]
# SQLite tick store path. Created on first run.
# path = "~/.config/optionflow/optionflow.db"

[feed]
# OpenAlgo-compatible REST host and API key.
host = "http://127.0.0.1:5000"
api_key = ""
timeout_seconds = 10

[scheduler]
# Shared rate limit across all OI fetch subscriptions.
requests_per_second = 8.0
# Strikes above/below ATM fetched per cycle.
strike_range = 20
fetch_interval_seconds = 300

[candles]
sweep_interval_seconds = 1
active_window_minutes = 5

[symbols]
indices = ["NIFTY", "BANKNIFTY", "FINNIFTY", "MIDCPNIFTY"]
stocks = [
  "RELIANCE", "TCS", "INFY", "HDFCBANK", "ICICIBANK",
  "HINDUNILVR", "ITC", "SBIN", "BHARTIARTL", "KOTAKBANK",
]
`

// createTemplateConfig writes a starter config.toml if none exists.
func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	return os.WriteFile(path, []byte(configTemplate), 0644)
}
