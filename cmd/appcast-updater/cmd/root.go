package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/theacharya/appcast-updater/internal/config"
	"github.com/theacharya/appcast-updater/internal/domain/appcast"
	"github.com/theacharya/appcast-updater/internal/logger"
	"github.com/theacharya/appcast-updater/internal/service/publisher"
	"github.com/theacharya/appcast-updater/internal/version"
)

var (
	// configPath to the settings YAML file.
	configPath string
	// feedPath overrides the feed location from settings.
	feedPath string
	// backupPath keeps the replaced feed when set.
	backupPath string
	// allowUnsigned publishes items without signature and length.
	allowUnsigned bool
	// publishedAt pins the publish instant (RFC 3339) for reproducible runs.
	publishedAt string
	// logLevel is the minimum level of diagnostics written to stderr.
	logLevel string

	errUnknownLogLevel = errors.New("unknown log level")

	// rootCmd inserts a new release into the appcast.
	rootCmd = &cobra.Command{
		Use:   "appcast-updater [version] [build] [signature]",
		Short: "Add a release to a Sparkle appcast",
		Long: "Add a release to a Sparkle appcast.\n\n" +
			"The signature argument is the output of Sparkle's sign_update, e.g.\n" +
			`  sparkle:edSignature="..." length="12345"`,
		Args:              cobra.ExactArgs(3),
		SilenceUsage:      true,
		PersistentPreRunE: applyLogLevel,
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &publisher.Options{
				ConfigPath:    configPath,
				FeedPath:      feedPath,
				BackupPath:    backupPath,
				AllowUnsigned: allowUnsigned,
				Release: appcast.ReleaseDescriptor{
					Version:       args[0],
					Build:         args[1],
					SignatureBlob: args[2],
				},
			}

			if publishedAt != "" {
				instant, err := time.Parse(time.RFC3339, publishedAt)
				if err != nil {
					return fmt.Errorf("invalid --published-at: %w", err)
				}

				options.PublishedAt = instant
			}

			return publisher.Run(ctx, options)
		},
	}
)

// Execute runs the appcast-updater CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// applyLogLevel sets the shared logger level from --log-level.
func applyLogLevel(_ *cobra.Command, _ []string) error {
	level, ok := logger.ParseLogLevel(logLevel)
	if !ok {
		return fmt.Errorf("%q: %w", logLevel, errUnknownLogLevel)
	}

	logger.SetLevel(level)

	return nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to settings file")
	rootCmd.PersistentFlags().StringVarP(&feedPath, "feed", "f", "", "path to the appcast (overrides feed_path)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	rootCmd.Flags().StringVar(&backupPath, "backup", "", "keep the replaced appcast at this path")
	rootCmd.Flags().BoolVar(&allowUnsigned, "allow-unsigned", false, "publish even if the signature is missing")
	rootCmd.Flags().StringVar(&publishedAt, "published-at", "", "publish instant in RFC 3339 (default now)")
}
