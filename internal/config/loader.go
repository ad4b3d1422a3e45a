package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PREVIEW_REDIS_ADDR.
const EnvPrefix = "PREVIEW"

// Loader handles configuration loading with Viper.
type Loader struct {
	v          *viper.Viper
	configFile string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v: viper.New(),
	}
}

// SetConfigFile sets an explicit config file path.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = path
}

// Load loads configuration with proper precedence:
// defaults < config file < env vars
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	l.setupViper(cfg)

	if err := l.loadConfigFile(); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Durations decode from strings such as "250ms" through viper's default hooks.
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	expandPaths(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// expandTilde expands ~ to the user's home directory.
func expandTilde(path string) string {
	if path == "" {
		return path
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

func expandPaths(cfg *Config) {
	cfg.Database.Path = expandTilde(cfg.Database.Path)
	cfg.Logging.File = expandTilde(cfg.Logging.File)
}

func (l *Loader) setupViper(cfg *Config) {
	v := l.v

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		v.AddConfigPath(filepath.Join(xdgConfig, "imagepreview"))
	}
	if homeDir, _ := os.UserHomeDir(); homeDir != "" {
		v.AddConfigPath(filepath.Join(homeDir, ".config", "imagepreview"))
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	l.setDefaults(cfg)

	// Unmarshal only sees env vars for keys viper knows about.
	for _, key := range configKeys {
		_ = v.BindEnv(key, EnvVar(key))
	}
	v.AutomaticEnv()
}

// configKeys lists every key that can be set from a file or the environment.
var configKeys = []string{
	"logging.level",
	"logging.format",
	"logging.file",
	"logging.enable_caller",
	"logging.recent_capacity",
	"preview.debounce_window",
	"preview.recency_window",
	"preview.redundancy_window",
	"preview.grace_period",
	"preview.sweep_interval",
	"preview.fetch_timeout",
	"preview.stats_interval",
	"database.path",
	"database.busy_timeout_ms",
	"redis.addr",
	"redis.username",
	"redis.password",
	"redis.db",
	"redis.channel",
	"images.base_url",
}

// EnvVar returns the environment variable for a config key:
// redis.addr -> PREVIEW_REDIS_ADDR.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func (l *Loader) setDefaults(cfg *Config) {
	v := l.v

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.enable_caller", cfg.Logging.EnableCaller)
	v.SetDefault("logging.recent_capacity", cfg.Logging.RecentCapacity)

	v.SetDefault("preview.debounce_window", cfg.Preview.DebounceWindow)
	v.SetDefault("preview.recency_window", cfg.Preview.RecencyWindow)
	v.SetDefault("preview.redundancy_window", cfg.Preview.RedundancyWindow)
	v.SetDefault("preview.grace_period", cfg.Preview.GracePeriod)
	v.SetDefault("preview.sweep_interval", cfg.Preview.SweepInterval)
	v.SetDefault("preview.fetch_timeout", cfg.Preview.FetchTimeout)
	v.SetDefault("preview.stats_interval", cfg.Preview.StatsInterval)

	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("database.busy_timeout_ms", cfg.Database.BusyTimeoutMs)

	v.SetDefault("redis.addr", cfg.Redis.Addr)
	v.SetDefault("redis.username", cfg.Redis.Username)
	v.SetDefault("redis.password", cfg.Redis.Password)
	v.SetDefault("redis.db", cfg.Redis.DB)
	v.SetDefault("redis.channel", cfg.Redis.Channel)

	v.SetDefault("images.base_url", cfg.Images.BaseURL)
}

// loadConfigFile reads the config file. A missing file is only an error when
// it was named explicitly.
func (l *Loader) loadConfigFile() error {
	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// ConfigFileUsed returns the config file that was loaded.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Settings returns every known key with its effective value.
func (l *Loader) Settings() map[string]any {
	out := make(map[string]any, len(configKeys))
	for _, key := range configKeys {
		out[key] = l.v.Get(key)
	}
	return out
}

// LoadFromFile loads configuration from a specific file.
func LoadFromFile(path string) (*Config, error) {
	loader := NewLoader()
	loader.SetConfigFile(path)
	return loader.Load()
}

// LoadDefault loads configuration with default search paths.
func LoadDefault() (*Config, error) {
	return NewLoader().Load()
}
