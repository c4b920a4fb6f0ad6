package publisher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/beevik/etree"

	"github.com/theacharya/appcast-updater/internal/config"
	"github.com/theacharya/appcast-updater/internal/domain/appcast"
	"github.com/theacharya/appcast-updater/internal/logger"
	"github.com/theacharya/appcast-updater/internal/repository/feed"
	"github.com/theacharya/appcast-updater/internal/service/inspector"
)

// ErrVerificationFailed indicates the written feed does not contain the new item as expected.
var ErrVerificationFailed = errors.New("feed verification failed")

// Options contains inputs for the publisher entry point.
type Options struct {
	// ConfigPath is the settings YAML; a missing default file means built-in defaults.
	ConfigPath string
	// FeedPath overrides the feed_path setting when non-empty.
	FeedPath string
	// BackupPath, when set, keeps the replaced feed there.
	BackupPath string
	// AllowUnsigned publishes even when the signing descriptor has no signature.
	AllowUnsigned bool
	// PublishedAt is the publish instant; zero means now.
	PublishedAt time.Time
	// Release is the version, build and signing descriptor given on the command line.
	Release appcast.ReleaseDescriptor
}

// publisher adds one release to an appcast.
// It is unexported; callers use Run, which loads settings and wires the repository.
type publisher struct {
	// cfg holds branding and feed settings.
	cfg *config.Config
	// repo loads and replaces the feed.
	repo *feed.FileRepository
	// now returns the publish instant.
	now func() time.Time
}

// Run loads settings and publishes opts.Release into the appcast.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "appcast-updater")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if opts.FeedPath != "" {
		cfg.FeedPath = opts.FeedPath
	}

	if opts.AllowUnsigned {
		cfg.AllowUnsigned = true
	}

	now := time.Now
	if !opts.PublishedAt.IsZero() {
		publishedAt := opts.PublishedAt
		now = func() time.Time { return publishedAt }
	}

	pub := &publisher{
		cfg:  cfg,
		repo: feed.NewFileRepository(cfg.FeedPath, feed.WithBackup(opts.BackupPath)),
		now:  now,
	}

	if err = pub.Publish(ctx, &opts.Release); err != nil {
		logger.ErrorKV(ctx, "Publishing failed", "error", err)

		return err
	}

	return nil
}

// Publish builds the item for release and splices it into the feed.
func (p *publisher) Publish(ctx context.Context, release *appcast.ReleaseDescriptor) error {
	ctx = logger.WithKV(ctx, "version", release.Version, "build", release.Build)

	if err := release.Validate(); err != nil {
		return err
	}

	info, err := p.enclosureInfo(ctx, release)
	if err != nil {
		return err
	}

	fragment, err := appcast.NewFeedItem(p.cfg, release, info, p.now()).Fragment()
	if err != nil {
		return err
	}

	logger.DebugKV(ctx, "Built feed item", "fragment", fragment)

	unlock, err := p.repo.Lock(ctx)
	if err != nil {
		return err
	}

	defer unlock()

	doc, err := p.repo.Load(ctx)
	if err != nil {
		return err
	}

	itemsBefore, err := doc.ItemCount()
	if err != nil {
		return err
	}

	p.warnAboutExistingReleases(ctx, release)

	if err = doc.InsertItem(fragment); err != nil {
		return fmt.Errorf("insert item: %w", err)
	}

	if err = p.commit(ctx, doc, release, itemsBefore); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Appcast updated", "path", p.repo.Path(), "items", itemsBefore+1)

	return nil
}

// enclosureInfo extracts the signature; a mismatch is fatal unless unsigned items are allowed.
func (p *publisher) enclosureInfo(ctx context.Context, release *appcast.ReleaseDescriptor) (*appcast.EnclosureInfo, error) {
	info, err := appcast.ExtractEnclosureInfo(ctx, release.SignatureBlob)
	if err == nil {
		return info, nil
	}

	if !errors.Is(err, appcast.ErrNoMatch) || !p.cfg.AllowUnsigned {
		return nil, fmt.Errorf("signing descriptor: %w", err)
	}

	logger.Warn(ctx, "Publishing item without enclosure length and signature")

	return nil, nil //nolint:nilnil // Unsigned items carry no enclosure info.
}

// warnAboutExistingReleases flags duplicates and out-of-order versions without failing the run.
func (p *publisher) warnAboutExistingReleases(ctx context.Context, release *appcast.ReleaseDescriptor) {
	summary, err := inspector.Inspect(ctx, p.repo.Path())
	if err != nil {
		logger.WarnKV(ctx, "Unable to inspect existing items", "error", err)

		return
	}

	if summary.HasShortVersion(release.Version) {
		logger.WarnKV(ctx, "Feed already lists this version", "short_version", release.Version)
	}

	if newest := summary.Newest(); newest != nil && newest.ShortVersion != "" && !release.IsNewerThan(newest.ShortVersion) {
		logger.WarnKV(ctx, "Release is not newer than the newest feed item", "newest", newest.ShortVersion)
	}
}

// commit checks the serialized feed and only then replaces the file,
// so a failed check leaves the previous feed in place.
func (p *publisher) commit(ctx context.Context, doc *feed.Document, release *appcast.ReleaseDescriptor, itemsBefore int) error {
	data, err := doc.Bytes()
	if err != nil {
		return err
	}

	if err = verify(data, release, itemsBefore); err != nil {
		return err
	}

	return p.repo.Replace(ctx, data)
}

// verify re-parses serialized feed data and checks that the channel grew by
// exactly one item and that its newest item is the release.
func verify(data []byte, release *appcast.ReleaseDescriptor, itemsBefore int) error {
	written, err := feed.Parse(data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVerificationFailed, err)
	}

	items, err := written.ItemCount()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVerificationFailed, err)
	}

	if items != itemsBefore+1 {
		return fmt.Errorf("%w: expected %d items, found %d", ErrVerificationFailed, itemsBefore+1, items)
	}

	newest, err := written.NewestItem()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVerificationFailed, err)
	}

	if newest == nil {
		return fmt.Errorf("%w: no item at the newest position", ErrVerificationFailed)
	}

	build := childText(newest, appcast.SparklePrefix+":version")
	shortVersion := childText(newest, appcast.SparklePrefix+":shortVersionString")

	if build != release.Build || shortVersion != release.Version {
		return fmt.Errorf("%w: newest item is %s (%s), expected %s (%s)",
			ErrVerificationFailed, shortVersion, build, release.Version, release.Build)
	}

	return nil
}

// childText returns the text of the first child named tag, or "" when absent.
func childText(parent *etree.Element, tag string) string {
	child := parent.SelectElement(tag)
	if child == nil {
		return ""
	}

	return child.Text()
}
