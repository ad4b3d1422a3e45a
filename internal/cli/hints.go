package cli

import (
	"fmt"
	"io"
)

// HintContext provides context for generating relevant next steps.
type HintContext struct {
	// Action is the command that was executed (e.g., "images add", "use").
	Action string

	// ChannelID is the channel involved (if any).
	ChannelID string

	// Announced reports whether a list change reached other processes.
	Announced bool
}

// PrintNextSteps prints contextual next steps after a successful command.
// Does nothing for JSON or quiet output.
func PrintNextSteps(out io.Writer, ctx HintContext) {
	if IsJSONOutput() || IsJSONLOutput() || IsQuiet() {
		return
	}

	hints := generateHints(ctx)
	if len(hints) == 0 {
		return
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	for _, hint := range hints {
		fmt.Fprintf(out, "  %s\n", hint)
	}
}

func generateHints(ctx HintContext) []string {
	switch ctx.Action {
	case "images add", "images remove":
		hints := []string{fmt.Sprintf("previewd images list %s", ctx.ChannelID)}
		if !ctx.Announced {
			hints = append(hints, "set redis.addr (or PREVIEW_REDIS_ADDR) so running services refresh automatically")
		}
		return hints
	case "use":
		if ctx.ChannelID == "" {
			return nil
		}
		return []string{
			"previewd images list",
			"previewd watch",
		}
	default:
		return nil
	}
}
