// Package cli implements the previewd command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tOgg1/imagepreview/internal/config"
	"github.com/tOgg1/imagepreview/internal/logging"
)

var (
	cfgFile     string
	logLevel    string
	logFormat   string
	jsonOutput  bool
	jsonlOutput bool
	quiet       bool
	verbose     bool

	appConfig *config.Config
	appLoader *config.Loader
	logFile   io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "previewd",
	Short: "Channel image preview service",
	Long: `previewd keeps a per-channel "image list + active image" view in sync
with the channel's image store and the chat layer's events.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initRuntime,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLogFile()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/imagepreview/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format override (json, console)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	rootCmd.PersistentFlags().BoolVar(&jsonlOutput, "jsonl", false, "output JSON lines")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (forces debug logging)")
}

// Execute runs the root command.
func Execute(version string) error {
	rootCmd.Version = version
	return rootCmd.Execute()
}

// IsJSONOutput reports whether --json was given.
func IsJSONOutput() bool { return jsonOutput }

// IsJSONLOutput reports whether --jsonl was given.
func IsJSONLOutput() bool { return jsonlOutput }

// IsQuiet reports whether --quiet was given.
func IsQuiet() bool { return quiet }

// IsVerbose reports whether --verbose was given.
func IsVerbose() bool { return verbose }

// initRuntime loads configuration and sets up logging for every command.
func initRuntime(cmd *cobra.Command, args []string) error {
	if jsonOutput && jsonlOutput {
		return fmt.Errorf("--json and --jsonl are mutually exclusive")
	}

	loader := config.NewLoader()
	if cfgFile != "" {
		loader.SetConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logCfg := cfg.LoggingSettings()
	logCfg.Output = os.Stderr
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logCfg.Output = f
		logFile = f
	}
	logging.Init(logCfg)

	appConfig = cfg
	appLoader = loader

	logging.Logger.Debug().
		Str("command", cmd.CommandPath()).
		Str("config_file", loader.ConfigFileUsed()).
		Msg("configuration loaded")
	return nil
}

func closeLogFile() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}
