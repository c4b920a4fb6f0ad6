package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/theacharya/appcast-updater/internal/service/initializer"
)

var (
	// description of the new channel.
	description string

	// initCmd creates the settings file and an empty appcast.
	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Create default settings and an empty appcast",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return initializer.Run(ctx, &initializer.Options{
				ConfigPath:  configPath,
				FeedPath:    feedPath,
				Description: description,
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	initCmd.Flags().StringVar(&description, "description", "", "channel description")

	rootCmd.AddCommand(initCmd)
}
