package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/theacharya/appcast-updater/internal/config"
	"github.com/theacharya/appcast-updater/internal/service/inspector"
)

// listCmd prints the items of the appcast, newest first.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the releases in the appcast",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		path := feedPath
		if path == "" {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}

			path = cfg.FeedPath
		}

		summary, err := inspector.Inspect(ctx, path)
		if err != nil {
			return err
		}

		return inspector.Print(cmd.OutOrStdout(), summary)
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(listCmd)
}
