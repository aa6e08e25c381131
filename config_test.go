package portfolio

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LedgerFile != "ledger.json" || cfg.TradeLogFile != "trades.jsonl" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.Hours.Timezone != "America/New_York" {
		t.Errorf("default timezone = %q, want America/New_York", cfg.Hours.Timezone)
	}
	if cfg.Feed.Attempts != 3 {
		t.Errorf("default attempts = %d, want 3", cfg.Feed.Attempts)
	}
}

func TestLoadConfig_FileOverridesAndExpandsEnv(t *testing.T) {
	t.Setenv("TSUB_DATA", "/var/lib/tsub")
	path := filepath.Join(t.TempDir(), "tsub.yaml")
	body := `
ledger_file: ${TSUB_DATA}/ledger.json
feed:
  url: https://example.com/quote/{ticker}
  attempts: 5
hours:
  timezone: Europe/Paris
  open: "09:00"
  close: "17:30"
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LedgerFile != "/var/lib/tsub/ledger.json" {
		t.Errorf("ledger file = %q, env reference not expanded", cfg.LedgerFile)
	}
	if cfg.Feed.URL != "https://example.com/quote/{ticker}" || cfg.Feed.Attempts != 5 {
		t.Errorf("feed = %+v", cfg.Feed)
	}
	if cfg.Hours.Timezone != "Europe/Paris" {
		t.Errorf("timezone = %q, want the override", cfg.Hours.Timezone)
	}
	// Untouched keys keep their defaults.
	if cfg.TradeLogFile != "trades.jsonl" {
		t.Errorf("trade log = %q, want the default", cfg.TradeLogFile)
	}
}

func TestLoadConfig_MalformedFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tsub.yaml")
	if err := os.WriteFile(path, []byte("ledger_file: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("malformed yaml loaded without error")
	}
}
