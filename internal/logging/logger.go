// Package logging configures the process-wide zerolog logger and the
// component loggers the preview service derives from it.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the root logger. Components derive from it with Component.
var Logger zerolog.Logger

// Config selects level, format and destination of log output.
type Config struct {
	Level          string    // debug, info, warn, error
	Format         string    // json or console
	Output         io.Writer // nil means stderr
	EnableCaller   bool
	RecentCapacity int // entries kept for Recent; 0 uses the default
}

// DefaultConfig logs info and above to stderr in console format.
func DefaultConfig() Config {
	return Config{
		Level:          "info",
		Format:         "console",
		Output:         os.Stderr,
		RecentCapacity: defaultRecentCapacity,
	}
}

// Init replaces Logger. Every line is also copied into the recent-log ring.
func Init(cfg Config) {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339Nano
	recent.resize(cfg.RecentCapacity)

	builder := zerolog.New(zerolog.MultiLevelWriter(sink(cfg), recent)).With().Timestamp()
	if cfg.EnableCaller {
		builder = builder.Caller()
	}
	Logger = builder.Logger()
}

func sink(cfg Config) io.Writer {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Format != "console" {
		return out
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05.000"}
}

// ParseLevel maps a level name to zerolog's level. Unknown names mean info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Component returns a logger tagged with component=name.
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// WithChannel tags logger with the chat channel it acts on.
func WithChannel(logger zerolog.Logger, channelID string) zerolog.Logger {
	return logger.With().Str("channel_id", channelID).Logger()
}

func init() {
	Init(DefaultConfig())
}
