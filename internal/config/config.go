// Package config loads and validates scroll tracking configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends understood by StorageConfig.Backend.
const (
	BackendMemory   = "memory"
	BackendBrowser  = "browser"
	BackendPostgres = "postgres"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Tracker  TrackerConfig  `mapstructure:"tracker"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Server   ServerConfig   `mapstructure:"server"`
	Simulate SimulateConfig `mapstructure:"simulate"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// TrackerConfig mirrors the tracker options.
type TrackerConfig struct {
	TrackDelayMs    int    `mapstructure:"track_delay_ms"`
	PercentInterval int    `mapstructure:"percent_interval"`
	StorageKey      string `mapstructure:"storage_key"`
}

// BrowserConfig configures the headless Chrome session.
type BrowserConfig struct {
	Headless          bool   `mapstructure:"headless"`
	UserAgent         string `mapstructure:"user_agent"`
	ViewportWidth     int64  `mapstructure:"viewport_width"`
	ViewportHeight    int64  `mapstructure:"viewport_height"`
	NavTimeoutSeconds int    `mapstructure:"nav_timeout_seconds"`
}

// StorageConfig selects where the progress record lives.
type StorageConfig struct {
	Backend  string         `mapstructure:"backend"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig controls access to the record table.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// ServerConfig controls the demo page server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// SimulateConfig describes the scroll plan replayed in the browser.
type SimulateConfig struct {
	Pages       []string `mapstructure:"pages"`
	PageHeight  int      `mapstructure:"page_height"`
	Targets     []int    `mapstructure:"targets"`
	Burst       int      `mapstructure:"burst"`
	ScrollsPerS float64  `mapstructure:"scrolls_per_second"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCROLLTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("tracker.track_delay_ms", 1500)
	v.SetDefault("tracker.percent_interval", 25)
	v.SetDefault("tracker.storage_key", "_bamPercentPageViewed")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.viewport_width", 1280)
	v.SetDefault("browser.viewport_height", 800)
	v.SetDefault("browser.nav_timeout_seconds", 45)
	v.SetDefault("storage.backend", BackendBrowser)
	v.SetDefault("storage.postgres.table", "tracker_records")
	v.SetDefault("storage.postgres.max_conns", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("simulate.pages", []string{"article", "landing"})
	v.SetDefault("simulate.page_height", 4000)
	v.SetDefault("simulate.targets", []int{47, 81})
	v.SetDefault("simulate.burst", 5)
	v.SetDefault("simulate.scrolls_per_second", 20.0)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Tracker.TrackDelayMs < 0 {
		return fmt.Errorf("tracker.track_delay_ms must be >= 0")
	}
	if c.Tracker.PercentInterval <= 0 {
		return fmt.Errorf("tracker.percent_interval must be > 0")
	}
	if c.Browser.ViewportWidth < 0 || c.Browser.ViewportHeight < 0 {
		return fmt.Errorf("browser.viewport dimensions must be >= 0")
	}
	switch c.Storage.Backend {
	case BackendMemory, BackendBrowser:
	case BackendPostgres:
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn must be set when backend is postgres")
		}
	default:
		return fmt.Errorf("storage.backend %q is not one of memory, browser, postgres", c.Storage.Backend)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if len(c.Simulate.Pages) == 0 {
		return fmt.Errorf("simulate.pages must list at least one page")
	}
	if c.Simulate.PageHeight <= 0 {
		return fmt.Errorf("simulate.page_height must be > 0")
	}
	if c.Simulate.Burst <= 0 {
		return fmt.Errorf("simulate.burst must be > 0")
	}
	if c.Simulate.ScrollsPerS <= 0 {
		return fmt.Errorf("simulate.scrolls_per_second must be > 0")
	}
	for _, target := range c.Simulate.Targets {
		if target < 0 {
			return fmt.Errorf("simulate.targets must be >= 0, got %d", target)
		}
	}
	return nil
}

// TrackDelay converts the configured delay into a duration.
func (c Config) TrackDelay() time.Duration {
	return time.Duration(c.Tracker.TrackDelayMs) * time.Millisecond
}

// NavigationTimeout converts the configured browser navigation budget.
func (c Config) NavigationTimeout() time.Duration {
	return time.Duration(c.Browser.NavTimeoutSeconds) * time.Second
}
