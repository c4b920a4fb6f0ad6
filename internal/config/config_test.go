package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields and format validations for Config.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.Error(t, Validate(nil))

	// Missing branding.
	require.Error(t, Validate(new(Config)))

	// Bad base URL.
	cfg := Default()
	cfg.ReleaseNotesBaseURL = "not a url"
	require.Error(t, Validate(cfg))

	// Offset that is not whole minutes.
	cfg = Default()
	cfg.UTCOffset = 8*time.Hour + time.Second
	require.Error(t, Validate(cfg))

	// Offset beyond real zones.
	cfg = Default()
	cfg.UTCOffset = 15 * time.Hour
	require.Error(t, Validate(cfg))

	// Optional fields get defaults and the trailing slash is trimmed.
	cfg = Default()
	cfg.EnclosureType = ""
	cfg.FeedPath = ""
	cfg.ReleaseNotesBaseURL = "https://example.com/"
	require.NoError(t, Validate(cfg))
	require.Equal(t, DefaultEnclosureType, cfg.EnclosureType)
	require.Equal(t, DefaultFeedPath, cfg.FeedPath)
	require.Equal(t, "https://example.com", cfg.ReleaseNotesBaseURL)
}

// TestReleaseNotesLinks verifies the links derived from the base URL.
func TestReleaseNotesLinks(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.Equal(t, "https://markerdata.theacharya.co/release-notes-appcast.html", cfg.ReleaseNotesLink())
	require.Equal(t, "https://markerdata.theacharya.co/release-notes/", cfg.FullReleaseNotesLink())
}

// TestLoadMissingDefault ensures a missing default settings file yields defaults.
func TestLoadMissingDefault(t *testing.T) {
	t.Parallel()

	if _, err := os.Stat(DefaultConfigFilename); err == nil {
		t.Skip("settings file present in package directory")
	}

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

// TestLoadMissingExplicit ensures an explicitly named missing file is an error.
func TestLoadMissingExplicit(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestLoadPartialOverride ensures unspecified keys keep their defaults.
func TestLoadPartialOverride(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	contents := "product_name: Other-App\nutc_offset: 2h\nallow_unsigned: true\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), DefaultFilePermissions))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "Other-App", cfg.ProductName)
	require.Equal(t, 2*time.Hour, cfg.UTCOffset)
	require.True(t, cfg.AllowUnsigned)
	require.Equal(t, "TheAcharya", cfg.OrganizationName)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	cfg := Default()
	cfg.ProjectName = "OtherProject"
	cfg.UTCOffset = -5 * time.Hour

	require.NoError(t, Save(path, cfg))
	require.Error(t, Save(path, nil))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}
