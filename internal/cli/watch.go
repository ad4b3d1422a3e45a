package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tOgg1/imagepreview/internal/logging"
	"github.com/tOgg1/imagepreview/internal/preview"
)

var (
	watchCount int
	watchImage string
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().IntVar(&watchCount, "count", 0, "exit after this many snapshots (0 = until interrupted)")
	watchCmd.Flags().StringVar(&watchImage, "image", "", "make this image active before watching")
}

var watchCmd = &cobra.Command{
	Use:   "watch [channel]",
	Short: "Stream a channel's preview state as JSON lines",
	Long: `Subscribe to a channel's preview state and print every snapshot as one
JSON object per line. The first line is the current state.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		channelID, err := resolveChannel(args)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := newRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.close()

		if watchImage != "" {
			rt.coordinator.GetPreviewState(channelID, watchImage)
		}

		writer := newSnapshotWriter(cmd.OutOrStdout(), channelID, watchCount)
		unsubscribe := rt.coordinator.Subscribe(channelID, writer.write)
		defer unsubscribe()

		g, gctx := errgroup.WithContext(ctx)
		if rt.bridge != nil {
			g.Go(func() error { return rt.bridge.Run(gctx) })
		}
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return nil
			case <-writer.done:
				return errWatchComplete
			}
		})

		err = g.Wait()
		if errors.Is(err, errWatchComplete) {
			err = nil
		}
		if werr := writer.error(); werr != nil && err == nil {
			err = werr
		}
		return err
	},
}

var errWatchComplete = errors.New("watch complete")

type snapshotLine struct {
	Time        time.Time              `json:"time"`
	Channel     string                 `json:"channel"`
	ActiveIndex int                    `json:"active_index"`
	Images      []preview.PreviewImage `json:"images"`
}

// snapshotWriter prints preview snapshots as JSON lines. Writes happen on
// whichever goroutine delivered the snapshot, so output is serialized.
type snapshotWriter struct {
	mu      sync.Mutex
	enc     *json.Encoder
	channel string
	limit   int
	written int
	err     error

	done     chan struct{}
	doneOnce sync.Once
}

func newSnapshotWriter(out io.Writer, channelID string, limit int) *snapshotWriter {
	return &snapshotWriter{
		enc:     json.NewEncoder(out),
		channel: channelID,
		limit:   limit,
		done:    make(chan struct{}),
	}
}

func (w *snapshotWriter) write(state preview.State) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil || (w.limit > 0 && w.written >= w.limit) {
		return
	}
	line := snapshotLine{
		Time:        time.Now().UTC(),
		Channel:     w.channel,
		ActiveIndex: state.ActiveIndex,
		Images:      state.Images,
	}
	if err := w.enc.Encode(line); err != nil {
		w.err = fmt.Errorf("failed to write snapshot: %w", err)
		logging.Logger.Error().Err(err).Str("channel_id", w.channel).Msg("watch output failed")
		w.finish()
		return
	}
	w.written++
	if w.limit > 0 && w.written >= w.limit {
		w.finish()
	}
}

func (w *snapshotWriter) finish() {
	w.doneOnce.Do(func() { close(w.done) })
}

func (w *snapshotWriter) error() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}
