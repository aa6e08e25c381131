package portfolio

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration, loaded from a YAML file.
// Everything has a usable default so the tool runs without one.
type Config struct {
	LedgerFile    string `yaml:"ledger_file"`
	TradeLogFile  string `yaml:"trade_log_file"`
	HistoryFile   string `yaml:"history_file"`
	ApprovalsFile string `yaml:"approvals_file"`
	PriceCache    string `yaml:"price_cache"`

	Feed struct {
		URL           string `yaml:"url"`
		PricePath     string `yaml:"price_path"`
		TimestampPath string `yaml:"timestamp_path"`
		Attempts      uint64 `yaml:"attempts"`
	} `yaml:"feed"`

	Hours MarketHours `yaml:"hours"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	cfg := &Config{
		LedgerFile:    "ledger.json",
		TradeLogFile:  "trades.jsonl",
		HistoryFile:   "history.jsonl",
		ApprovalsFile: "approvals.jsonl",
		PriceCache:    "prices.json",
		Hours:         DefaultMarketHours(),
	}
	cfg.Feed.Attempts = 3
	return cfg
}

// LoadConfig reads a YAML config file, expanding ${ENV} references in its
// content. A missing file yields the defaults; a malformed one is an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("could not read config file %q: %w", path, err)
	}
	data = []byte(os.ExpandEnv(string(data)))
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("could not parse config file %q: %w", path, err)
	}
	return cfg, nil
}

// NewFeed builds the configured price feed chain: live HTTP feed, bounded
// retry, then last-known-price fallback.
func (c *Config) NewFeed() PriceFeed {
	web := NewWebFeed()
	if c.Feed.URL != "" {
		web.URL = c.Feed.URL
	}
	if c.Feed.PricePath != "" {
		web.PricePath = c.Feed.PricePath
	}
	if c.Feed.TimestampPath != "" {
		web.TimestampPath = c.Feed.TimestampPath
	}
	return WithLastKnown(WithRetry(web, c.Feed.Attempts), c.PriceCache)
}
