package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the following exporter
type Config struct {
	// Browser surface the harvest loop scrolls
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Harvest loop pacing and termination
	Harvest HarvestConfig `yaml:"harvest" json:"harvest"`

	// Avatar enrichment
	Enrich EnrichConfig `yaml:"enrich" json:"enrich"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// BrowserConfig controls the headless browser and the card selectors it samples
type BrowserConfig struct {
	URL               string         `yaml:"url" json:"url"`
	Headless          bool           `yaml:"headless" json:"headless"`
	UserDataDir       string         `yaml:"user_data_dir" json:"user_data_dir"`
	UserAgent         string         `yaml:"user_agent" json:"user_agent"`
	NavigationTimeout time.Duration  `yaml:"navigation_timeout" json:"navigation_timeout"`
	ProfileBase       string         `yaml:"profile_base" json:"profile_base"`
	Selectors         SelectorConfig `yaml:"selectors" json:"selectors"`
}

// SelectorConfig names the CSS selectors that locate a following card and its fields
type SelectorConfig struct {
	Card        string `yaml:"card" json:"card"`
	Name        string `yaml:"name" json:"name"`
	Avatar      string `yaml:"avatar" json:"avatar"`
	Description string `yaml:"description" json:"description"`
}

// HarvestConfig holds the scroll loop knobs
type HarvestConfig struct {
	ScrollStepRatio  float64       `yaml:"scroll_step_ratio" json:"scroll_step_ratio"`
	TickInterval     time.Duration `yaml:"tick_interval" json:"tick_interval"`
	StallTicksToStop int           `yaml:"stall_ticks_to_stop" json:"stall_ticks_to_stop"`
	MaxTicks         int           `yaml:"max_ticks" json:"max_ticks"`
}

// EnrichConfig holds avatar fetch settings
type EnrichConfig struct {
	MaxConcurrency int           `yaml:"max_concurrency" json:"max_concurrency"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout" json:"fetch_timeout"`
	Referer        string        `yaml:"referer" json:"referer"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// Default selectors for the weibo.com following page.
const (
	DefaultCardSelector        = "a.ALink_none_1w6rm.UserFeedCard_left_2XXOA"
	DefaultNameSelector        = "span[usercard]"
	DefaultAvatarSelector      = "img.woo-avatar-img"
	DefaultDescriptionSelector = ".UserFeedCard_clb_3cXsW"
)

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			URL:               "",
			Headless:          false,
			NavigationTimeout: 45 * time.Second,
			ProfileBase:       "https://weibo.com/",
			Selectors: SelectorConfig{
				Card:        DefaultCardSelector,
				Name:        DefaultNameSelector,
				Avatar:      DefaultAvatarSelector,
				Description: DefaultDescriptionSelector,
			},
		},
		Harvest: HarvestConfig{
			ScrollStepRatio:  0.9,
			TickInterval:     400 * time.Millisecond,
			StallTicksToStop: 6,
			MaxTicks:         600,
		},
		Enrich: EnrichConfig{
			MaxConcurrency: 6,
			FetchTimeout:   20 * time.Second,
			Referer:        "https://weibo.com/",
			UserAgent:      "Mozilla/5.0",
		},
		Output: OutputConfig{
			BaseDirectory: ".",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from FOLLOWEXPORT_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv("FOLLOWEXPORT_URL"); v != "" {
		c.Browser.URL = v
	}
	if v := os.Getenv("FOLLOWEXPORT_USER_DATA_DIR"); v != "" {
		c.Browser.UserDataDir = v
	}
	if v := os.Getenv("FOLLOWEXPORT_BROWSER_USER_AGENT"); v != "" {
		c.Browser.UserAgent = v
	}
	if v := os.Getenv("FOLLOWEXPORT_HEADLESS"); v != "" {
		c.Browser.Headless = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("FOLLOWEXPORT_OUTPUT_DIR"); v != "" {
		c.Output.BaseDirectory = v
	}
	if v := os.Getenv("FOLLOWEXPORT_MAX_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("FOLLOWEXPORT_MAX_CONCURRENCY: %w", err))
		} else {
			c.Enrich.MaxConcurrency = n
		}
	}
	if v := os.Getenv("FOLLOWEXPORT_MAX_TICKS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("FOLLOWEXPORT_MAX_TICKS: %w", err))
		} else {
			c.Harvest.MaxTicks = n
		}
	}
	if v := os.Getenv("FOLLOWEXPORT_TICK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("FOLLOWEXPORT_TICK_INTERVAL: %w", err))
		} else {
			c.Harvest.TickInterval = d
		}
	}
	if v := os.Getenv("FOLLOWEXPORT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("FOLLOWEXPORT_LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".followexport.yaml",
		".followexport.yml",
		filepath.Join(home, ".config", "followexport", "config.yaml"),
		filepath.Join(home, ".followexport.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Browser.NavigationTimeout <= 0 {
		errs = append(errs, errors.New("browser navigation timeout must be positive"))
	}
	if c.Browser.Selectors.Card == "" {
		errs = append(errs, errors.New("browser card selector is required"))
	}
	if c.Browser.ProfileBase == "" {
		errs = append(errs, errors.New("browser profile base is required"))
	}

	if c.Harvest.ScrollStepRatio <= 0 || c.Harvest.ScrollStepRatio > 1 {
		errs = append(errs, errors.New("scroll step ratio must be in (0, 1]"))
	}
	if c.Harvest.TickInterval < 0 {
		errs = append(errs, errors.New("tick interval cannot be negative"))
	}
	if c.Harvest.StallTicksToStop <= 0 {
		errs = append(errs, errors.New("stall ticks to stop must be positive"))
	}
	if c.Harvest.MaxTicks <= 0 {
		errs = append(errs, errors.New("max ticks must be positive"))
	}

	if c.Enrich.MaxConcurrency <= 0 {
		errs = append(errs, errors.New("enrich max concurrency must be positive"))
	}
	if c.Enrich.FetchTimeout <= 0 {
		errs = append(errs, errors.New("enrich fetch timeout must be positive"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if url, ok := flags["url"].(string); ok && url != "" {
		c.Browser.URL = url
	}
	if headless, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = headless
	}
	if dir, ok := flags["user-data-dir"].(string); ok && dir != "" {
		c.Browser.UserDataDir = dir
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if concurrent, ok := flags["concurrency"].(int); ok && concurrent > 0 {
		c.Enrich.MaxConcurrency = concurrent
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".followexport.env"))

	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg.MergeCommandLineFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}
