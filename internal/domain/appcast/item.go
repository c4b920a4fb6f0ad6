package appcast

import (
	"fmt"
	"time"

	"github.com/beevik/etree"

	"github.com/theacharya/appcast-updater/internal/config"
)

const (
	// SparkleNamespace is the URI bound to the sparkle prefix in appcasts.
	SparkleNamespace = "http://www.andymatuschak.org/xml-namespaces/sparkle"

	// SparklePrefix is the prefix used for Sparkle extension elements.
	SparklePrefix = "sparkle"

	// pubDateLayout is RFC 2822 with a numeric zone, e.g. "Mon, 01 Jan 2024 08:00:00 +0800".
	pubDateLayout = "Mon, 02 Jan 2006 15:04:05 -0700"

	// fragmentIndent is the number of spaces used to indent the item fragment.
	fragmentIndent = 4
)

// Enclosure describes the downloadable archive of a feed item.
type Enclosure struct {
	URL       string
	Length    string
	Type      string
	Signature string
}

// FeedItem is a single <item> of the appcast. It is built once per run and never mutated.
type FeedItem struct {
	Title                string
	Link                 string
	PubDate              string
	Version              string
	ShortVersion         string
	MinimumSystemVersion string
	ReleaseNotesLink     string
	FullReleaseNotesLink string
	Enclosure            Enclosure
}

// PublishDate shifts the UTC instant by a fixed offset and renders it for <pubDate>.
// The offset is a constant shift, not a timezone: there is no DST handling.
func PublishDate(now time.Time, offset time.Duration) string {
	zone := time.FixedZone("", int(offset/time.Second))

	return now.UTC().In(zone).Format(pubDateLayout)
}

// EnclosureURL returns the GitHub release download URL of the DMG for version.
func EnclosureURL(cfg *config.Config, version string) string {
	return fmt.Sprintf(
		"https://github.com/%s/%s/releases/download/v%s/%s_v%s.dmg",
		cfg.OrganizationName, cfg.ProjectName, version, cfg.ProductName, version,
	)
}

// NewFeedItem assembles the item for release. A nil info leaves the enclosure
// length and signature empty; the fragment then omits those attributes.
func NewFeedItem(cfg *config.Config, release *ReleaseDescriptor, info *EnclosureInfo, now time.Time) *FeedItem {
	item := &FeedItem{
		Title:                "Version " + release.Version,
		Link:                 cfg.ReleaseNotesBaseURL,
		PubDate:              PublishDate(now, cfg.UTCOffset),
		Version:              release.Build,
		ShortVersion:         release.Version,
		MinimumSystemVersion: cfg.MinimumSystemVersion,
		ReleaseNotesLink:     cfg.ReleaseNotesLink(),
		FullReleaseNotesLink: cfg.FullReleaseNotesLink(),
		Enclosure: Enclosure{
			URL:  EnclosureURL(cfg, release.Version),
			Type: cfg.EnclosureType,
		},
	}

	if info != nil {
		item.Enclosure.Length = info.Length
		item.Enclosure.Signature = info.Signature
	}

	return item
}

// Fragment renders the item as a standalone XML element. The sparkle prefix
// is declared on the item itself so the fragment parses without the feed.
func (i *FeedItem) Fragment() (string, error) {
	doc := etree.NewDocument()

	item := doc.CreateElement("item")
	item.CreateAttr("xmlns:"+SparklePrefix, SparkleNamespace)

	item.CreateElement("title").SetText(i.Title)
	item.CreateElement("link").SetText(i.Link)
	item.CreateElement("pubDate").SetText(i.PubDate)
	item.CreateElement(sparkle("version")).SetText(i.Version)
	item.CreateElement(sparkle("shortVersionString")).SetText(i.ShortVersion)
	item.CreateElement(sparkle("minimumSystemVersion")).SetText(i.MinimumSystemVersion)
	item.CreateElement(sparkle("releaseNotesLink")).SetText(i.ReleaseNotesLink)
	item.CreateElement(sparkle("fullReleaseNotesLink")).SetText(i.FullReleaseNotesLink)

	enclosure := item.CreateElement("enclosure")
	enclosure.CreateAttr("url", i.Enclosure.URL)

	if i.Enclosure.Length != "" {
		enclosure.CreateAttr("length", i.Enclosure.Length)
	}

	enclosure.CreateAttr("type", i.Enclosure.Type)

	if i.Enclosure.Signature != "" {
		enclosure.CreateAttr(sparkle("edSignature"), i.Enclosure.Signature)
	}

	doc.Indent(fragmentIndent)

	fragment, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("render item: %w", err)
	}

	return fragment, nil
}

func sparkle(name string) string {
	return SparklePrefix + ":" + name
}
