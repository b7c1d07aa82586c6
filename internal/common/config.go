package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for the TWR engine.
type Config struct {
	Environment string          `toml:"environment"`
	Accounts    []string        `toml:"accounts"`
	Engine      EngineConfig    `toml:"engine"`
	Brokerage   BrokerageConfig `toml:"brokerage"`
	Logging     LoggingConfig   `toml:"logging"`
}

// EngineConfig holds calculation policy knobs. The today-point thresholds
// are policy, not physics, so they live here rather than in the code.
type EngineConfig struct {
	ExchangeTimezone     string  `toml:"exchange_timezone"`       // IANA name, e.g. "America/New_York"
	TodayEquityThreshold float64 `toml:"today_equity_threshold"`  // absolute currency delta before a synthesized point is rewritten
	TodayTWRThresholdPct float64 `toml:"today_twr_threshold_pct"` // relative cumulative-TWR delta (percent) before a rewrite
	TodayFetchTimeout    string  `toml:"today_fetch_timeout"`     // duration string, default "5s"
}

// GetTodayFetchTimeout parses and returns the bounded wait for the today fetch.
func (c *EngineConfig) GetTodayFetchTimeout() time.Duration {
	d, err := time.ParseDuration(c.TodayFetchTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// Location resolves the exchange timezone, falling back to UTC.
func (c *EngineConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.ExchangeTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// BrokerageConfig holds brokerage API client configuration.
type BrokerageConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the HTTP timeout duration.
func (c *BrokerageConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Engine: EngineConfig{
			ExchangeTimezone:     "America/New_York",
			TodayEquityThreshold: 1.0,
			TodayTWRThresholdPct: 0.05,
			TodayFetchTimeout:    "5s",
		},
		Brokerage: BrokerageConfig{
			BaseURL:   "https://api.broker.example.com",
			RateLimit: 5,
			Timeout:   "30s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// Later files override earlier ones; missing files are skipped.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies TWR_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("TWR_ENV"); env != "" {
		config.Environment = env
	}

	if level := os.Getenv("TWR_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if accounts := os.Getenv("TWR_ACCOUNTS"); accounts != "" {
		parts := strings.Split(accounts, ",")
		filtered := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				filtered = append(filtered, p)
			}
		}
		config.Accounts = filtered
	}

	if tz := os.Getenv("TWR_EXCHANGE_TIMEZONE"); tz != "" {
		config.Engine.ExchangeTimezone = tz
	}

	if v := os.Getenv("TWR_TODAY_EQUITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Engine.TodayEquityThreshold = f
		}
	}

	if v := os.Getenv("TWR_TODAY_TWR_THRESHOLD_PCT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Engine.TodayTWRThresholdPct = f
		}
	}

	if url := os.Getenv("TWR_BROKERAGE_BASE_URL"); url != "" {
		config.Brokerage.BaseURL = url
	}

	if key := os.Getenv("TWR_BROKERAGE_API_KEY"); key != "" {
		config.Brokerage.APIKey = key
	}

	if secret := os.Getenv("TWR_BROKERAGE_API_SECRET"); secret != "" {
		config.Brokerage.APISecret = secret
	}
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
