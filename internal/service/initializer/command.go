package initializer

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gorilla/feeds"

	"github.com/theacharya/appcast-updater/internal/config"
	"github.com/theacharya/appcast-updater/internal/domain/appcast"
	"github.com/theacharya/appcast-updater/internal/logger"
	"github.com/theacharya/appcast-updater/internal/repository/feed"
)

// Options contains inputs for the initializer entry point.
type Options struct {
	// ConfigPath is the settings YAML; it is written with defaults when absent.
	ConfigPath string
	// FeedPath overrides the feed_path setting when non-empty.
	FeedPath string
	// Description is the channel description; defaults to a line naming the product.
	Description string
}

// Run creates the settings file (if missing) and an empty appcast.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "appcast-init")

	cfg, err := loadOrCreateSettings(ctx, opts)
	if err != nil {
		return err
	}

	doc, err := newChannel(cfg, opts.Description)
	if err != nil {
		return err
	}

	repo := feed.NewFileRepository(cfg.FeedPath)
	if err = repo.Create(ctx, doc); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Created appcast", "path", repo.Path())

	return nil
}

// loadOrCreateSettings loads existing settings or persists the defaults.
func loadOrCreateSettings(ctx context.Context, opts *Options) (*config.Config, error) {
	path := opts.ConfigPath
	if path == "" {
		path = config.DefaultConfigFilename
	}

	_, err := os.Stat(path)

	switch {
	case err == nil:
		cfg, loadErr := config.Load(path)
		if loadErr != nil {
			return nil, fmt.Errorf("load settings: %w", loadErr)
		}

		if opts.FeedPath != "" {
			cfg.FeedPath = opts.FeedPath
		}

		return cfg, nil
	case errors.Is(err, os.ErrNotExist):
		cfg := config.Default()
		if opts.FeedPath != "" {
			cfg.FeedPath = opts.FeedPath
		}

		if err = config.Save(path, cfg); err != nil {
			return nil, fmt.Errorf("save settings: %w", err)
		}

		logger.InfoKV(ctx, "Wrote default settings", "path", path)

		return cfg, nil
	default:
		return nil, fmt.Errorf("stat settings: %w", err)
	}
}

// newChannel renders an item-less RSS channel and binds the sparkle prefix on its root.
func newChannel(cfg *config.Config, description string) (*feed.Document, error) {
	if description == "" {
		description = "Most recent changes to " + cfg.ProductName + " with links to updates."
	}

	channel := &feeds.Feed{
		Title:       cfg.ProductName,
		Link:        &feeds.Link{Href: cfg.ReleaseNotesBaseURL},
		Description: description,
	}

	rss, err := channel.ToRss()
	if err != nil {
		return nil, fmt.Errorf("render channel: %w", err)
	}

	doc, err := feed.Parse([]byte(rss))
	if err != nil {
		return nil, err
	}

	doc.BindNamespace(appcast.SparklePrefix, appcast.SparkleNamespace)

	return doc, nil
}
