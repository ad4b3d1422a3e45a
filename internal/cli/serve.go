package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tOgg1/imagepreview/internal/logging"
	"github.com/tOgg1/imagepreview/internal/preview"
)

var serveStatsInterval time.Duration

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().DurationVar(&serveStatsInterval, "stats-interval", 0, "how often to log coordinator stats (default from config; 0 keeps config)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the preview coordinator until interrupted",
	Long: `Run the preview coordinator against the configured image store.

List-changed and clicked events arrive over Redis when redis.addr is set;
otherwise only mutations made by this process are seen.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.Component("serve")
		if err := appConfig.EnsureDirectories(); err != nil {
			logger.Warn().Err(err).Msg("failed to create directories")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := newRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.close()

		interval := appConfig.Preview.StatsInterval
		if serveStatsInterval > 0 {
			interval = serveStatsInterval
		}

		logger.Info().
			Str("version", cmd.Root().Version).
			Str("database", appConfig.Database.Path).
			Bool("redis", rt.bridge != nil).
			Msg("preview service started")

		g, gctx := errgroup.WithContext(ctx)
		if rt.bridge != nil {
			g.Go(func() error { return rt.bridge.Run(gctx) })
		}
		if interval > 0 {
			g.Go(func() error {
				logStats(gctx, rt.coordinator, interval)
				return nil
			})
		}
		g.Go(func() error {
			<-gctx.Done()
			return nil
		})

		err = g.Wait()
		logger.Info().Msg("preview service stopping")
		return err
	},
}

// logStats logs coordinator bookkeeping every interval until ctx ends.
func logStats(ctx context.Context, c *preview.Coordinator, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger := logging.Component("stats")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := c.Stats()
			logger.Info().
				Int("subscribers", stats.TotalSubscribers).
				Int("channels", len(stats.Channels)).
				Int("recent_errors", countRecentErrors()).
				Msg("coordinator stats")
		}
	}
}

func countRecentErrors() int {
	n := 0
	for _, entry := range logging.Recent("", 0) {
		if entry.Level == "error" {
			n++
		}
	}
	return n
}
