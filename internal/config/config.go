package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the product branding and feed location used to build appcast entries.
type Config struct {
	// OrganizationName is the GitHub owner hosting release artifacts.
	OrganizationName string `yaml:"organization_name"`
	// ProjectName is the GitHub repository hosting release artifacts.
	ProjectName string `yaml:"project_name"`
	// ProductName prefixes the DMG file name, e.g. "Marker-Data" in Marker-Data_v2.5.0.dmg.
	ProductName string `yaml:"product_name"`
	// ReleaseNotesBaseURL is the product site; item links and release notes links derive from it.
	ReleaseNotesBaseURL string `yaml:"release_notes_base_url"`
	// MinimumSystemVersion is the lowest macOS version the release supports.
	MinimumSystemVersion string `yaml:"minimum_system_version"`
	// EnclosureType is the MIME type advertised for the download.
	EnclosureType string `yaml:"enclosure_type"`
	// FeedPath is the appcast file updated in place.
	FeedPath string `yaml:"feed_path"`
	// UTCOffset is the fixed offset applied to the publish timestamp.
	UTCOffset time.Duration `yaml:"utc_offset"`
	// AllowUnsigned keeps going when the signing descriptor has no signature,
	// writing an enclosure without length and signature.
	AllowUnsigned bool `yaml:"allow_unsigned"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "appcast-settings.yaml"

	// DefaultFeedPath is the appcast updated when no path is configured.
	DefaultFeedPath = "./appcast.xml"

	// DefaultUTCOffset models the publisher's fixed timezone (UTC+8).
	DefaultUTCOffset = 8 * time.Hour

	// DefaultEnclosureType is the MIME type of the DMG download.
	DefaultEnclosureType = "application/octet-stream"

	// DefaultFilePermissions is the default file permission for settings files.
	DefaultFilePermissions = 0o600

	// maxUTCOffset bounds UTCOffset to real-world zones.
	maxUTCOffset = 14 * time.Hour
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errFieldRequired is returned when a mandatory setting is blank.
	errFieldRequired = errors.New("setting must be provided")
	// errInvalidOffset is returned when UTCOffset is out of range or not whole minutes.
	errInvalidOffset = errors.New("invalid utc offset")
)

// Default returns settings reproducing the Marker Data release constants.
func Default() *Config {
	return &Config{
		OrganizationName:     "TheAcharya",
		ProjectName:          "MarkerData",
		ProductName:          "Marker-Data",
		ReleaseNotesBaseURL:  "https://markerdata.theacharya.co",
		MinimumSystemVersion: "13.0",
		EnclosureType:        DefaultEnclosureType,
		FeedPath:             DefaultFeedPath,
		UTCOffset:            DefaultUTCOffset,
	}
}

// Load reads settings from path on top of Default and validates them.
// A missing file at the default location yields the defaults; a missing
// file anywhere else is an error.
func Load(path string) (*Config, error) {
	isDefaultPath := path == "" || path == DefaultConfigFilename
	if path == "" {
		path = DefaultConfigFilename
	}

	cfg := Default()

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if isDefaultPath && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err = yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills in defaults for optional ones.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	required := []struct {
		name  string
		value string
	}{
		{"organization_name", cfg.OrganizationName},
		{"project_name", cfg.ProjectName},
		{"product_name", cfg.ProductName},
		{"release_notes_base_url", cfg.ReleaseNotesBaseURL},
		{"minimum_system_version", cfg.MinimumSystemVersion},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("%s: %w", field.name, errFieldRequired)
		}
	}

	if _, err := url.ParseRequestURI(cfg.ReleaseNotesBaseURL); err != nil {
		return fmt.Errorf("invalid release notes base URL: %w", err)
	}

	cfg.ReleaseNotesBaseURL = strings.TrimRight(cfg.ReleaseNotesBaseURL, "/")

	if cfg.EnclosureType == "" {
		cfg.EnclosureType = DefaultEnclosureType
	}

	if cfg.FeedPath == "" {
		cfg.FeedPath = DefaultFeedPath
	}

	if cfg.UTCOffset < -maxUTCOffset || cfg.UTCOffset > maxUTCOffset || cfg.UTCOffset%time.Minute != 0 {
		return fmt.Errorf("%s: %w", cfg.UTCOffset, errInvalidOffset)
	}

	return nil
}

// ReleaseNotesLink is the short release notes page Sparkle shows in its update dialog.
func (c *Config) ReleaseNotesLink() string {
	return c.ReleaseNotesBaseURL + "/release-notes-appcast.html"
}

// FullReleaseNotesLink is the complete release history page.
func (c *Config) FullReleaseNotesLink() string {
	return c.ReleaseNotesBaseURL + "/release-notes/"
}
