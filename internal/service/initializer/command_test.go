package initializer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/require"

	"github.com/theacharya/appcast-updater/internal/config"
	"github.com/theacharya/appcast-updater/internal/domain/appcast"
	"github.com/theacharya/appcast-updater/internal/repository/feed"
)

// TestRun_CreatesSettingsAndFeed verifies a fresh directory gets defaults and an empty channel.
func TestRun_CreatesSettingsAndFeed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	settingsPath := filepath.Join(dir, config.DefaultConfigFilename)
	feedPath := filepath.Join(dir, "appcast.xml")

	require.NoError(t, Run(context.Background(), &Options{
		ConfigPath: settingsPath,
		FeedPath:   feedPath,
	}))

	cfg, err := config.Load(settingsPath)
	require.NoError(t, err)
	require.Equal(t, feedPath, cfg.FeedPath)
	require.Equal(t, "Marker-Data", cfg.ProductName)

	contents, err := os.ReadFile(feedPath)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(contents), feed.Declaration))
	require.Equal(t, 1, strings.Count(string(contents), "<?xml"))

	tree := etree.NewDocument()
	require.NoError(t, tree.ReadFromBytes(contents))

	root := tree.Root()
	require.Equal(t, "rss", root.Tag)
	require.Equal(t, appcast.SparkleNamespace, root.SelectAttrValue("xmlns:sparkle", ""))

	channel := root.SelectElement("channel")
	require.NotNil(t, channel)
	require.Equal(t, "title", channel.ChildElements()[0].Tag)
	require.Equal(t, "Marker-Data", channel.SelectElement("title").Text())
	require.Equal(t, "https://markerdata.theacharya.co", channel.SelectElement("link").Text())
	require.Empty(t, channel.SelectElements("item"))
}

// TestRun_ExistingFeed ensures an existing appcast is never overwritten.
func TestRun_ExistingFeed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	feedPath := filepath.Join(dir, "appcast.xml")
	require.NoError(t, os.WriteFile(feedPath, []byte("<rss/>"), 0o600))

	err := Run(context.Background(), &Options{
		ConfigPath: filepath.Join(dir, config.DefaultConfigFilename),
		FeedPath:   feedPath,
	})
	require.ErrorIs(t, err, feed.ErrFeedExists)

	contents, err := os.ReadFile(feedPath)
	require.NoError(t, err)
	require.Equal(t, "<rss/>", string(contents))
}

// TestRun_UsesExistingSettings verifies branding comes from a present settings file.
func TestRun_UsesExistingSettings(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	settingsPath := filepath.Join(dir, "settings.yaml")

	cfg := config.Default()
	cfg.ProductName = "Rocket"
	cfg.FeedPath = filepath.Join(dir, "rocket.xml")
	require.NoError(t, config.Save(settingsPath, cfg))

	require.NoError(t, Run(context.Background(), &Options{
		ConfigPath:  settingsPath,
		Description: "Rocket updates",
	}))

	tree := etree.NewDocument()
	require.NoError(t, tree.ReadFromFile(cfg.FeedPath))
	require.Equal(t, "Rocket", tree.FindElement("//channel/title").Text())
	require.Equal(t, "Rocket updates", tree.FindElement("//channel/description").Text())
}
