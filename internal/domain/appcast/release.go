package appcast

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ErrInvalidRelease is returned when the version or build given on the command line is unusable.
var ErrInvalidRelease = errors.New("invalid release")

// ReleaseDescriptor is the input of a single publish run.
type ReleaseDescriptor struct {
	// Version is the marketing version, e.g. "2.5.0".
	Version string
	// Build is the bundle build number, e.g. "250".
	Build string
	// SignatureBlob is the sign_update output carrying edSignature and length.
	SignatureBlob string
}

// Validate checks that Version is a semantic version usable in the download URL
// and that Build is a single non-empty token.
func (r *ReleaseDescriptor) Validate() error {
	if _, err := r.SemanticVersion(); err != nil {
		return err
	}

	if r.Build == "" || strings.ContainsAny(r.Build, " \t\r\n") {
		return fmt.Errorf("build %q: %w", r.Build, ErrInvalidRelease)
	}

	return nil
}

// SemanticVersion parses Version. A leading "v" is rejected because the
// download URL template adds its own.
func (r *ReleaseDescriptor) SemanticVersion() (*semver.Version, error) {
	if strings.HasPrefix(r.Version, "v") || strings.HasPrefix(r.Version, "V") {
		return nil, fmt.Errorf("version %q must not carry a v prefix: %w", r.Version, ErrInvalidRelease)
	}

	v, err := semver.NewVersion(r.Version)
	if err != nil {
		return nil, fmt.Errorf("version %q: %w: %w", r.Version, ErrInvalidRelease, err)
	}

	return v, nil
}

// IsNewerThan reports whether the release version is strictly greater than other.
// Unparsable other versions compare as older so they never block a release.
func (r *ReleaseDescriptor) IsNewerThan(other string) bool {
	current, err := r.SemanticVersion()
	if err != nil {
		return false
	}

	previous, err := semver.NewVersion(other)
	if err != nil {
		return true
	}

	return current.GreaterThan(previous)
}
