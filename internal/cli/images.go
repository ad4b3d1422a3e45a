package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tOgg1/imagepreview/internal/events"
	"github.com/tOgg1/imagepreview/internal/imagekey"
	"github.com/tOgg1/imagepreview/internal/imagesource"
	"github.com/tOgg1/imagepreview/internal/logging"
)

var (
	imagesAddSequence int64
	imagesAddWidth    int
	imagesAddHeight   int
	imagesListWidth   int
	imagesListHeight  int
)

func init() {
	rootCmd.AddCommand(imagesCmd)
	imagesCmd.AddCommand(imagesAddCmd)
	imagesCmd.AddCommand(imagesListCmd)
	imagesCmd.AddCommand(imagesRemoveCmd)

	imagesAddCmd.Flags().Int64Var(&imagesAddSequence, "sequence", 0, "message sequence (default: after the last image)")
	imagesAddCmd.Flags().IntVar(&imagesAddWidth, "width", 0, "image width in pixels")
	imagesAddCmd.Flags().IntVar(&imagesAddHeight, "height", 0, "image height in pixels")

	imagesListCmd.Flags().IntVar(&imagesListWidth, "width", 0, "request resized download URLs of this width")
	imagesListCmd.Flags().IntVar(&imagesListHeight, "height", 0, "request resized download URLs of this height")
}

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "Manage channel images in the image store",
}

var imagesAddCmd = &cobra.Command{
	Use:   "add [channel] <url>",
	Short: "Add an image to a channel and announce the change",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		channelArgs, imageURL := splitChannelArgs(args)
		channelID, err := resolveChannel(channelArgs)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		store, err := openImageStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		img := imagesource.Image{
			URL:      imageURL,
			Sequence: imagesAddSequence,
			Width:    imagesAddWidth,
			Height:   imagesAddHeight,
		}
		if err := store.AddImage(ctx, channelID, img); err != nil {
			return err
		}
		announced := announceListChanged(ctx, channelID)

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(cmd.OutOrStdout(), map[string]any{
				"channel":   channelID,
				"url":       imageURL,
				"key":       imagekey.Normalize(imageURL),
				"announced": announced,
			})
		}
		if IsQuiet() {
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %s to %s\n", imagekey.Normalize(imageURL), channelID)
		PrintNextSteps(cmd.OutOrStdout(), HintContext{Action: "images add", ChannelID: channelID, Announced: announced})
		return nil
	},
}

var imagesRemoveCmd = &cobra.Command{
	Use:     "remove [channel] <url>",
	Aliases: []string{"rm"},
	Short:   "Remove an image from a channel and announce the change",
	Args:    cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		channelArgs, imageURL := splitChannelArgs(args)
		channelID, err := resolveChannel(channelArgs)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		store, err := openImageStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		removed, err := store.RemoveImage(ctx, channelID, imageURL)
		if err != nil {
			return err
		}
		announced := false
		if removed {
			announced = announceListChanged(ctx, channelID)
		}

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(cmd.OutOrStdout(), map[string]any{
				"channel":   channelID,
				"url":       imageURL,
				"removed":   removed,
				"announced": announced,
			})
		}
		if IsQuiet() {
			return nil
		}
		if !removed {
			fmt.Fprintf(cmd.OutOrStdout(), "%s not found in %s\n", imageURL, channelID)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %s from %s\n", imageURL, channelID)
		PrintNextSteps(cmd.OutOrStdout(), HintContext{Action: "images remove", ChannelID: channelID, Announced: announced})
		return nil
	},
}

type imageRow struct {
	Sequence    int64  `json:"sequence"`
	Key         string `json:"key"`
	URL         string `json:"url"`
	DownloadURL string `json:"download_url"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
}

var imagesListCmd = &cobra.Command{
	Use:     "list [channel]",
	Aliases: []string{"ls"},
	Short:   "List a channel's images in display order",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		channelID, err := resolveChannel(args)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		store, err := openImageStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		images, err := store.ImagesByChannel(ctx, channelID)
		if err != nil {
			return err
		}

		size := imagesource.Size{Width: imagesListWidth, Height: imagesListHeight}
		rows := make([]imageRow, 0, len(images))
		for _, img := range images {
			rows = append(rows, imageRow{
				Sequence:    img.Sequence,
				Key:         imagekey.Normalize(img.URL),
				URL:         img.URL,
				DownloadURL: store.DownloadURL(img.URL, size),
				Width:       img.Width,
				Height:      img.Height,
			})
		}

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(cmd.OutOrStdout(), rows)
		}
		if len(rows) == 0 {
			if !IsQuiet() {
				fmt.Fprintf(cmd.OutOrStdout(), "no images in %s\n", channelID)
			}
			return nil
		}

		table := make([][]string, 0, len(rows))
		for _, row := range rows {
			table = append(table, []string{
				strconv.FormatInt(row.Sequence, 10),
				row.Key,
				logging.RedactURL(row.DownloadURL),
			})
		}
		return writeTable(cmd.OutOrStdout(), []string{"SEQ", "KEY", "DOWNLOAD URL"}, table)
	},
}

// splitChannelArgs separates an optional leading channel from the trailing URL.
func splitChannelArgs(args []string) ([]string, string) {
	return args[:len(args)-1], args[len(args)-1]
}

// announceListChanged tells running services about a mutation. Without Redis
// there is nobody to tell, which is logged rather than treated as failure.
func announceListChanged(ctx context.Context, channelID string) bool {
	err := publishRemote(ctx, events.ListChanged{ChannelID: channelID})
	if err == nil {
		return true
	}
	if errors.Is(err, errRedisRequired) {
		logging.Logger.Debug().Str("channel_id", channelID).Msg("redis not configured; list change not announced")
		return false
	}
	logging.Logger.Warn().Err(err).Str("channel_id", channelID).Msg("failed to announce list change")
	return false
}
