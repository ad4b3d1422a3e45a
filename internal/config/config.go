// Package config handles imagepreview configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tOgg1/imagepreview/internal/logging"
	"github.com/tOgg1/imagepreview/internal/preview"
)

// Config is the root configuration structure.
type Config struct {
	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// Preview coordinator timings
	Preview PreviewConfig `yaml:"preview" mapstructure:"preview"`

	// Database settings for the SQLite image store
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`

	// Redis settings for the cross-process event bridge
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`

	// Images settings
	Images ImagesConfig `yaml:"images" mapstructure:"images"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path.
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`

	// RecentCapacity is how many log lines are kept in memory for inspection.
	RecentCapacity int `yaml:"recent_capacity" mapstructure:"recent_capacity"`
}

// PreviewConfig mirrors preview.Config.
type PreviewConfig struct {
	DebounceWindow   time.Duration `yaml:"debounce_window" mapstructure:"debounce_window"`
	RecencyWindow    time.Duration `yaml:"recency_window" mapstructure:"recency_window"`
	RedundancyWindow time.Duration `yaml:"redundancy_window" mapstructure:"redundancy_window"`
	GracePeriod      time.Duration `yaml:"grace_period" mapstructure:"grace_period"`
	SweepInterval    time.Duration `yaml:"sweep_interval" mapstructure:"sweep_interval"`
	FetchTimeout     time.Duration `yaml:"fetch_timeout" mapstructure:"fetch_timeout"`

	// StatsInterval is how often `serve` logs coordinator stats. Zero disables it.
	StatsInterval time.Duration `yaml:"stats_interval" mapstructure:"stats_interval"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	// Path is the SQLite database file path.
	Path string `yaml:"path" mapstructure:"path"`

	// BusyTimeoutMs is how long to wait for a locked database.
	BusyTimeoutMs int `yaml:"busy_timeout_ms" mapstructure:"busy_timeout_ms"`
}

// RedisConfig contains the event bridge settings. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
	Channel  string `yaml:"channel" mapstructure:"channel"`
}

// ImagesConfig contains image URL settings.
type ImagesConfig struct {
	// BaseURL is prefixed to relative image paths.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	p := preview.DefaultConfig()

	return &Config{
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "console",
			RecentCapacity: 1000,
		},
		Preview: PreviewConfig{
			DebounceWindow:   p.DebounceWindow,
			RecencyWindow:    p.RecencyWindow,
			RedundancyWindow: p.RedundancyWindow,
			GracePeriod:      p.GracePeriod,
			SweepInterval:    p.SweepInterval,
			FetchTimeout:     p.FetchTimeout,
			StatsInterval:    30 * time.Second,
		},
		Database: DatabaseConfig{
			Path:          filepath.Join(homeDir, ".local", "share", "imagepreview", "images.db"),
			BusyTimeoutMs: 5000,
		},
		Redis: RedisConfig{
			Channel: "imagepreview:events",
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
	default:
		return fmt.Errorf("logging.level must be one of trace, debug, info, warn, error, fatal, got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	if c.Logging.RecentCapacity < 0 {
		return fmt.Errorf("logging.recent_capacity must not be negative")
	}

	durations := []struct {
		key string
		val time.Duration
	}{
		{"preview.debounce_window", c.Preview.DebounceWindow},
		{"preview.recency_window", c.Preview.RecencyWindow},
		{"preview.redundancy_window", c.Preview.RedundancyWindow},
		{"preview.grace_period", c.Preview.GracePeriod},
		{"preview.sweep_interval", c.Preview.SweepInterval},
		{"preview.fetch_timeout", c.Preview.FetchTimeout},
	}
	for _, d := range durations {
		if d.val <= 0 {
			return fmt.Errorf("%s must be positive", d.key)
		}
	}
	if c.Preview.StatsInterval < 0 {
		return fmt.Errorf("preview.stats_interval must not be negative")
	}
	if c.Preview.SweepInterval < time.Second {
		return fmt.Errorf("preview.sweep_interval must be at least 1s")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.BusyTimeoutMs < 0 {
		return fmt.Errorf("database.busy_timeout_ms must not be negative")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("redis.db must not be negative")
	}
	if c.Redis.Addr != "" && c.Redis.Channel == "" {
		return fmt.Errorf("redis.channel is required when redis.addr is set")
	}
	return nil
}

// PreviewSettings converts the preview section to coordinator settings.
func (c *Config) PreviewSettings() preview.Config {
	return preview.Config{
		DebounceWindow:   c.Preview.DebounceWindow,
		RecencyWindow:    c.Preview.RecencyWindow,
		RedundancyWindow: c.Preview.RedundancyWindow,
		GracePeriod:      c.Preview.GracePeriod,
		SweepInterval:    c.Preview.SweepInterval,
		FetchTimeout:     c.Preview.FetchTimeout,
	}
}

// LoggingSettings converts the logging section for logging.Init. Output is
// left to the caller.
func (c *Config) LoggingSettings() logging.Config {
	return logging.Config{
		Level:          strings.ToLower(c.Logging.Level),
		Format:         strings.ToLower(c.Logging.Format),
		EnableCaller:   c.Logging.EnableCaller,
		RecentCapacity: c.Logging.RecentCapacity,
	}
}

// RedisEnabled reports whether the Redis bridge is configured.
func (c *Config) RedisEnabled() bool {
	return strings.TrimSpace(c.Redis.Addr) != ""
}

// EnsureDirectories creates the database directory.
func (c *Config) EnsureDirectories() error {
	if c.Database.Path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(c.Database.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
