package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/vk-watch/pkg/logging"
	"github.com/Sternrassler/vk-watch/pkg/metrics"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Runs the pipeline every WATCH_INTERVAL and serves /health, /ready and /metrics.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		logger := logging.NewLogger("watch")

		srv := metrics.NewServer(cfg.MetricsAddr, a.ready)
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("Serving health and metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		watchLoop(ctx, cfg.WatchInterval, func(ctx context.Context) error {
			_, err := a.pipeline.RunFromStore(ctx, a.watchList)
			return err
		}, logger)

		logger.Info().Msg("Shutting down")
		return nil
	},
}

// watchLoop calls runOnce immediately and then every interval until ctx is
// done. Runs never overlap; a failed run is logged and the loop goes on.
func watchLoop(ctx context.Context, interval time.Duration, runOnce func(context.Context) error, logger zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := runOnce(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("Run failed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
