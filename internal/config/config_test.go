package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	for _, key := range configKeys {
		// Empty values are treated as unset.
		t.Setenv(EnvVar(key), "")
	}
	chdir(t, t.TempDir())
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 200*time.Millisecond, cfg.Preview.DebounceWindow)
	require.Equal(t, 5*time.Second, cfg.Preview.GracePeriod)
	require.False(t, cfg.RedisEnabled())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"zero debounce", func(c *Config) { c.Preview.DebounceWindow = 0 }, "preview.debounce_window"},
		{"negative grace", func(c *Config) { c.Preview.GracePeriod = -time.Second }, "preview.grace_period"},
		{"fast sweep", func(c *Config) { c.Preview.SweepInterval = 10 * time.Millisecond }, "preview.sweep_interval"},
		{"no database", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"redis without channel", func(c *Config) {
			c.Redis.Addr = "localhost:6379"
			c.Redis.Channel = ""
		}, "redis.channel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	isolateEnv(t)

	cfg, err := LoadDefault()
	require.NoError(t, err)
	require.Equal(t, DefaultConfig().Preview, cfg.Preview)
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_FileThenEnv(t *testing.T) {
	isolateEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
logging:
  level: debug
  format: json
preview:
  debounce_window: 250ms
  grace_period: 10s
database:
  path: ~/previews/images.db
redis:
  addr: localhost:6379
  channel: previews
images:
  base_url: https://cdn.example.com/files
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("PREVIEW_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("PREVIEW_PREVIEW_RECENCY_WINDOW", "1s")

	loader := NewLoader()
	loader.SetConfigFile(path)
	cfg, err := loader.Load()
	require.NoError(t, err)

	require.Equal(t, path, loader.ConfigFileUsed())
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "json", cfg.Logging.Format)
	require.Equal(t, 250*time.Millisecond, cfg.Preview.DebounceWindow)
	require.Equal(t, 10*time.Second, cfg.Preview.GracePeriod)
	require.Equal(t, time.Second, cfg.Preview.RecencyWindow)
	require.Equal(t, 100*time.Millisecond, cfg.Preview.RedundancyWindow)
	require.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	require.Equal(t, "previews", cfg.Redis.Channel)
	require.Equal(t, "https://cdn.example.com/files", cfg.Images.BaseURL)

	home, _ := os.UserHomeDir()
	require.Equal(t, filepath.Join(home, "previews", "images.db"), cfg.Database.Path)

	settings := cfg.PreviewSettings()
	require.Equal(t, 250*time.Millisecond, settings.DebounceWindow)
	require.Equal(t, 10*time.Second, settings.GracePeriod)

	require.Equal(t, "redis.internal:6380", loader.Settings()["redis.addr"])
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolateEnv(t)

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidValueRejected(t *testing.T) {
	isolateEnv(t)
	t.Setenv("PREVIEW_LOGGING_FORMAT", "xml")

	_, err := LoadDefault()
	require.ErrorContains(t, err, "logging.format")
}

func TestEnvVar(t *testing.T) {
	require.Equal(t, "PREVIEW_REDIS_ADDR", EnvVar("redis.addr"))
	require.Equal(t, "PREVIEW_PREVIEW_GRACE_PERIOD", EnvVar("preview.grace_period"))
}

func TestExpandTilde(t *testing.T) {
	home, _ := os.UserHomeDir()
	require.Equal(t, home, expandTilde("~"))
	require.Equal(t, filepath.Join(home, "x", "y"), expandTilde("~/x/y"))
	require.Equal(t, "/abs", expandTilde("/abs"))
	require.Equal(t, "", expandTilde(""))
}
