// Package config handles loading and validating configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the PolySentinel engine.
type Config struct {
	// Polymarket Gamma REST API
	GammaAPIURL string
	MarketLimit int

	// Polymarket WebSocket
	PolymarketWSURL string

	// Scan behavior
	ScanInterval  time.Duration
	MinVolumeUSD  float64
	MinAlertScore float64
	MinOutcomes   int

	// History windows
	VolumeWindowDays int
	PriceWindowDays  int
	WalletWindowDays int

	// Workers
	WorkerCount int

	// Persistence
	DataPath        string
	PersistInterval time.Duration
	MaxSamples      int

	// Export
	ExportDir string

	// UI
	EnableTUI     bool
	UIRefreshRate time.Duration

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables with fallback to .env file.
// Priority order: Environment variables > .env file > hardcoded defaults
func Load() (*Config, error) {
	// Attempt to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		// Polymarket
		GammaAPIURL:     getEnv("GAMMA_API_URL", "https://gamma-api.polymarket.com/markets"),
		MarketLimit:     getEnvInt("MARKET_LIMIT", 500),
		PolymarketWSURL: getEnv("POLYMARKET_WS_URL", "wss://ws-subscriptions-clob.polymarket.com/ws/"),

		// Scan
		ScanInterval:  time.Duration(getEnvInt("SCAN_INTERVAL_MINUTES", 5)) * time.Minute,
		MinVolumeUSD:  getEnvFloat("MIN_VOLUME_USD", 10000),
		MinAlertScore: getEnvFloat("MIN_ALERT_SCORE", 30),
		MinOutcomes:   getEnvInt("MIN_WALLET_OUTCOMES", 10),

		// Windows
		VolumeWindowDays: getEnvInt("VOLUME_WINDOW_DAYS", 30),
		PriceWindowDays:  getEnvInt("PRICE_WINDOW_DAYS", 1),
		WalletWindowDays: getEnvInt("WALLET_WINDOW_DAYS", 7),

		// Workers
		WorkerCount: getEnvInt("WORKER_COUNT", 5),

		// Persistence
		DataPath:        getEnv("DATA_PATH", "./data/history.json"),
		PersistInterval: time.Duration(getEnvInt("PERSIST_INTERVAL_MINUTES", 5)) * time.Minute,
		MaxSamples:      getEnvInt("MAX_SAMPLES_PER_MARKET", 1000),

		// Export
		ExportDir: getEnv("EXPORT_DIR", "./exports"),

		// UI
		EnableTUI:     getEnvBool("ENABLE_TUI", true),
		UIRefreshRate: time.Duration(getEnvInt("UI_REFRESH_MS", 500)) * time.Millisecond,

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "INFO"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set and valid.
func (c *Config) Validate() error {
	if c.GammaAPIURL == "" {
		return fmt.Errorf("GAMMA_API_URL is required")
	}

	if c.MarketLimit < 1 {
		return fmt.Errorf("MARKET_LIMIT must be at least 1")
	}

	if c.MinVolumeUSD < 0 {
		return fmt.Errorf("MIN_VOLUME_USD must not be negative")
	}

	if c.MinAlertScore < 0 || c.MinAlertScore > 100 {
		return fmt.Errorf("MIN_ALERT_SCORE must be between 0 and 100")
	}

	if c.VolumeWindowDays < 1 || c.PriceWindowDays < 1 || c.WalletWindowDays < 1 {
		return fmt.Errorf("history windows must be at least 1 day")
	}

	if c.WorkerCount < 1 {
		return fmt.Errorf("WORKER_COUNT must be at least 1")
	}

	if c.MaxSamples < 10 {
		return fmt.Errorf("MAX_SAMPLES_PER_MARKET must be at least 10")
	}

	if c.DataPath == "" {
		return fmt.Errorf("DATA_PATH is required")
	}

	return nil
}

// VolumeWindow returns the volume history window as a duration.
func (c *Config) VolumeWindow() time.Duration {
	return time.Duration(c.VolumeWindowDays) * 24 * time.Hour
}

// PriceWindow returns the price history window as a duration.
func (c *Config) PriceWindow() time.Duration {
	return time.Duration(c.PriceWindowDays) * 24 * time.Hour
}

// WalletWindow returns the wallet activity window as a duration.
func (c *Config) WalletWindow() time.Duration {
	return time.Duration(c.WalletWindowDays) * 24 * time.Hour
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as an integer or returns a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat retrieves an environment variable as a float64 or returns a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvBool retrieves an environment variable as a boolean or returns a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
