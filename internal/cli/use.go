package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var useClear bool

func init() {
	rootCmd.AddCommand(useCmd)
	useCmd.Flags().BoolVar(&useClear, "clear", false, "forget the default channel")
}

var useCmd = &cobra.Command{
	Use:   "use [channel]",
	Short: "Show or set the default channel",
	Long: `Show or set the channel used when a command's channel argument is
omitted. The selection is stored in ~/.config/imagepreview/context.yaml.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := contextStore()

		if useClear {
			if err := store.Clear(); err != nil {
				return err
			}
			if !IsQuiet() {
				fmt.Fprintln(cmd.OutOrStdout(), "default channel cleared")
			}
			return nil
		}

		ctx, err := store.Load()
		if err != nil {
			return err
		}

		if len(args) == 1 {
			ctx.SetChannel(args[0])
			if ctx.IsEmpty() {
				return fmt.Errorf("channel must not be empty")
			}
			if err := store.Save(ctx); err != nil {
				return err
			}
		}

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(cmd.OutOrStdout(), ctx)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ctx.String())
		if len(args) == 1 {
			PrintNextSteps(cmd.OutOrStdout(), HintContext{Action: "use", ChannelID: ctx.ChannelID})
		}
		return nil
	},
}
