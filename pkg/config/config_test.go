package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Harvest.ScrollStepRatio != 0.9 {
		t.Errorf("Expected default scroll step ratio to be 0.9, got %v", config.Harvest.ScrollStepRatio)
	}

	if config.Harvest.TickInterval != 400*time.Millisecond {
		t.Errorf("Expected default tick interval to be 400ms, got %v", config.Harvest.TickInterval)
	}

	if config.Harvest.StallTicksToStop != 6 {
		t.Errorf("Expected default stall threshold to be 6, got %d", config.Harvest.StallTicksToStop)
	}

	if config.Harvest.MaxTicks != 600 {
		t.Errorf("Expected default max ticks to be 600, got %d", config.Harvest.MaxTicks)
	}

	if config.Enrich.MaxConcurrency != 6 {
		t.Errorf("Expected default enrich concurrency to be 6, got %d", config.Enrich.MaxConcurrency)
	}

	if config.Browser.UserAgent != "" {
		t.Errorf("Expected browser user agent to default to Chrome's own, got %q", config.Browser.UserAgent)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Expected default config to validate, got %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FOLLOWEXPORT_URL", "https://weibo.com/u/page/follow/42")
	t.Setenv("FOLLOWEXPORT_HEADLESS", "true")
	t.Setenv("FOLLOWEXPORT_OUTPUT_DIR", "/tmp/exports")
	t.Setenv("FOLLOWEXPORT_MAX_CONCURRENCY", "3")
	t.Setenv("FOLLOWEXPORT_MAX_TICKS", "50")
	t.Setenv("FOLLOWEXPORT_TICK_INTERVAL", "1s")
	t.Setenv("FOLLOWEXPORT_LOG_LEVEL", "debug")
	t.Setenv("FOLLOWEXPORT_BROWSER_USER_AGENT", "Mozilla/5.0 (X11; Linux x86_64) Chrome/126.0")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		t.Fatalf("Failed to load from environment: %v", err)
	}

	if config.Browser.URL != "https://weibo.com/u/page/follow/42" {
		t.Errorf("Expected URL from env, got %s", config.Browser.URL)
	}
	if !config.Browser.Headless {
		t.Error("Expected headless to be enabled")
	}
	if config.Browser.UserAgent != "Mozilla/5.0 (X11; Linux x86_64) Chrome/126.0" {
		t.Errorf("Expected browser user agent from env, got %q", config.Browser.UserAgent)
	}
	if config.Enrich.UserAgent != "Mozilla/5.0" {
		t.Errorf("Expected fetch user agent to stay at its default, got %q", config.Enrich.UserAgent)
	}
	if config.Output.BaseDirectory != "/tmp/exports" {
		t.Errorf("Expected output directory to be /tmp/exports, got %s", config.Output.BaseDirectory)
	}
	if config.Enrich.MaxConcurrency != 3 {
		t.Errorf("Expected concurrency 3, got %d", config.Enrich.MaxConcurrency)
	}
	if config.Harvest.MaxTicks != 50 {
		t.Errorf("Expected max ticks 50, got %d", config.Harvest.MaxTicks)
	}
	if config.Harvest.TickInterval != time.Second {
		t.Errorf("Expected tick interval 1s, got %v", config.Harvest.TickInterval)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("Expected log level to be debug, got %s", config.Logging.Level)
	}
}

func TestLoadFromEnvRejectsGarbage(t *testing.T) {
	t.Setenv("FOLLOWEXPORT_MAX_TICKS", "lots")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err == nil {
		t.Error("Expected error for non-numeric FOLLOWEXPORT_MAX_TICKS")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantError bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "zero ratio", mutate: func(c *Config) { c.Harvest.ScrollStepRatio = 0 }, wantError: true},
		{name: "ratio above one", mutate: func(c *Config) { c.Harvest.ScrollStepRatio = 1.5 }, wantError: true},
		{name: "no stall threshold", mutate: func(c *Config) { c.Harvest.StallTicksToStop = 0 }, wantError: true},
		{name: "no tick budget", mutate: func(c *Config) { c.Harvest.MaxTicks = 0 }, wantError: true},
		{name: "zero concurrency", mutate: func(c *Config) { c.Enrich.MaxConcurrency = 0 }, wantError: true},
		{name: "missing card selector", mutate: func(c *Config) { c.Browser.Selectors.Card = "" }, wantError: true},
		{name: "missing output", mutate: func(c *Config) { c.Output.BaseDirectory = "" }, wantError: true},
		{name: "invalid log level", mutate: func(c *Config) { c.Logging.Level = "chatty" }, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()

	config.MergeCommandLineFlags(map[string]interface{}{
		"url":         "https://weibo.com/u/page/follow/7",
		"headless":    true,
		"output":      "/flag/output",
		"concurrency": 2,
		"log-level":   "error",
	})

	if config.Browser.URL != "https://weibo.com/u/page/follow/7" {
		t.Errorf("Expected URL from flag, got %s", config.Browser.URL)
	}
	if !config.Browser.Headless {
		t.Error("Expected headless from flag")
	}
	if config.Output.BaseDirectory != "/flag/output" {
		t.Errorf("Expected output directory to be /flag/output, got %s", config.Output.BaseDirectory)
	}
	if config.Enrich.MaxConcurrency != 2 {
		t.Errorf("Expected concurrency 2, got %d", config.Enrich.MaxConcurrency)
	}
	if config.Logging.Level != "error" {
		t.Errorf("Expected log level to be error, got %s", config.Logging.Level)
	}
}

func TestSaveAndLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "followexport.yaml")

	config := DefaultConfig()
	config.Browser.URL = "https://weibo.com/u/page/follow/99"
	config.Harvest.TickInterval = 250 * time.Millisecond
	config.Enrich.MaxConcurrency = 4

	if err := config.Save(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded := DefaultConfig()
	if err := loaded.LoadFromFile(configPath); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loaded.Browser.URL != config.Browser.URL {
		t.Errorf("Expected URL %s, got %s", config.Browser.URL, loaded.Browser.URL)
	}
	if loaded.Harvest.TickInterval != 250*time.Millisecond {
		t.Errorf("Expected tick interval 250ms, got %v", loaded.Harvest.TickInterval)
	}
	if loaded.Enrich.MaxConcurrency != 4 {
		t.Errorf("Expected concurrency 4, got %d", loaded.Enrich.MaxConcurrency)
	}
}

func TestLoadFromFileYAMLDurations(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "followexport.yaml")
	content := `
harvest:
  tick_interval: 750ms
  max_ticks: 20
enrich:
  fetch_timeout: 5s
`
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	config := DefaultConfig()
	if err := config.LoadFromFile(configPath); err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if config.Harvest.TickInterval != 750*time.Millisecond {
		t.Errorf("Expected 750ms, got %v", config.Harvest.TickInterval)
	}
	if config.Harvest.MaxTicks != 20 {
		t.Errorf("Expected 20 max ticks, got %d", config.Harvest.MaxTicks)
	}
	if config.Enrich.FetchTimeout != 5*time.Second {
		t.Errorf("Expected 5s fetch timeout, got %v", config.Enrich.FetchTimeout)
	}
	if config.Harvest.StallTicksToStop != 6 {
		t.Errorf("Expected untouched defaults to survive, got %d", config.Harvest.StallTicksToStop)
	}
}

func TestLoadValidatesResult(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(configPath, []byte("harvest:\n  max_ticks: -1\n"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := Load(configPath, nil); err == nil {
		t.Error("Expected validation error for negative max ticks")
	}
}
