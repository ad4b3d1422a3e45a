package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tOgg1/imagepreview/internal/config"
	"github.com/tOgg1/imagepreview/internal/logging"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print every setting with its effective value after defaults, the config
file and PREVIEW_* environment overrides. Secrets are redacted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := logging.RedactMap(appLoader.Settings())

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(cmd.OutOrStdout(), map[string]any{
				"config_file": appLoader.ConfigFileUsed(),
				"settings":    settings,
			})
		}

		keys := make([]string, 0, len(settings))
		for key := range settings {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		rows := make([][]string, 0, len(keys))
		for _, key := range keys {
			rows = append(rows, []string{key, settingValue(settings[key]), config.EnvVar(key)})
		}
		if file := appLoader.ConfigFileUsed(); file != "" && !IsQuiet() {
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", file)
		}
		return writeTable(cmd.OutOrStdout(), []string{"KEY", "VALUE", "ENV"}, rows)
	},
}

// settingValue formats a redacted settings value for display.
func settingValue(v any) string {
	s := fmt.Sprint(v)
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
