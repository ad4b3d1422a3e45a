package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tOgg1/imagepreview/internal/events"
	"github.com/tOgg1/imagepreview/internal/imagekey"
)

func init() {
	rootCmd.AddCommand(clickCmd)
	rootCmd.AddCommand(keyCmd)
}

var clickCmd = &cobra.Command{
	Use:   "click [channel] <url>",
	Short: "Announce that an image preview was clicked",
	Long: `Publish a clicked event so running services move the channel's active
image to the one matching url. Requires redis.addr.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		channelArgs, imageURL := splitChannelArgs(args)
		channelID, err := resolveChannel(channelArgs)
		if err != nil {
			return err
		}

		event := events.Clicked{ChannelID: channelID, ImageURL: imageURL}
		if err := publishRemote(cmd.Context(), event); err != nil {
			return err
		}

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(cmd.OutOrStdout(), map[string]any{
				"channel": channelID,
				"url":     imageURL,
				"key":     imagekey.Normalize(imageURL),
			})
		}
		if !IsQuiet() {
			fmt.Fprintf(cmd.OutOrStdout(), "clicked %s in %s\n", imagekey.Normalize(imageURL), channelID)
		}
		return nil
	},
}

type keyRow struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

var keyCmd = &cobra.Command{
	Use:   "key <url>...",
	Short: "Print the normalized key for image URLs",
	Long: `Print the key used to match images across URL variants. URLs whose file
name contains a 32-digit hex content hash map to that hash; others map to
their last path segment without query string.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rows := make([]keyRow, 0, len(args))
		for _, raw := range args {
			rows = append(rows, keyRow{URL: raw, Key: imagekey.Normalize(raw)})
		}

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(cmd.OutOrStdout(), rows)
		}
		if len(rows) == 1 {
			fmt.Fprintln(cmd.OutOrStdout(), rows[0].Key)
			return nil
		}
		table := make([][]string, 0, len(rows))
		for _, row := range rows {
			table = append(table, []string{row.Key, row.URL})
		}
		return writeTable(cmd.OutOrStdout(), []string{"KEY", "URL"}, table)
	},
}
