// Package commands implements the vk-watch command line.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/Sternrassler/vk-watch/internal/config"
	"github.com/Sternrassler/vk-watch/pkg/logging"
	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "vk-watch",
	Short:         "vk-watch collects and enriches profile snapshots for a watched set of platform users.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to a .env file (default: ./.env if present).")
}

// ExecuteContext runs the command line and exits non-zero on failure.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and sets up the global logger.
func loadConfig() (*config.Config, error) {
	var paths []string
	if envFile != "" {
		paths = append(paths, envFile)
	}

	cfg, err := config.Load(paths...)
	if err != nil {
		return nil, err
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})
	return cfg, nil
}
