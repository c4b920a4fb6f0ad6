package inspector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/theacharya/appcast-updater/internal/domain/appcast"
	"github.com/theacharya/appcast-updater/internal/logger"
)

// ErrFeedNotFound is returned when there is no feed file to inspect.
var ErrFeedNotFound = errors.New("feed not found")

// ItemSummary describes one appcast entry as Sparkle sees it.
type ItemSummary struct {
	Title           string
	ShortVersion    string
	Build           string
	Published       string
	EnclosureURL    string
	EnclosureLength string
}

// FeedSummary lists the items of an appcast in document order, newest first by convention.
type FeedSummary struct {
	Title string
	Items []ItemSummary
}

// Inspect parses the appcast at path.
func Inspect(ctx context.Context, path string) (*FeedSummary, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrFeedNotFound)
		}

		return nil, fmt.Errorf("open feed: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	return Read(ctx, file)
}

// Read parses an appcast from r.
func Read(ctx context.Context, r io.Reader) (*FeedSummary, error) {
	parsed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	summary := &FeedSummary{
		Title: parsed.Title,
		Items: make([]ItemSummary, 0, len(parsed.Items)),
	}

	for _, item := range parsed.Items {
		if item == nil {
			continue
		}

		summary.Items = append(summary.Items, summarize(item))
	}

	logger.DebugKV(ctx, "Inspected feed", "title", summary.Title, "items", len(summary.Items))

	return summary, nil
}

// Newest returns the first item, or nil for an empty feed.
func (s *FeedSummary) Newest() *ItemSummary {
	if len(s.Items) == 0 {
		return nil
	}

	return &s.Items[0]
}

// HasShortVersion reports whether any item already publishes version.
func (s *FeedSummary) HasShortVersion(version string) bool {
	for i := range s.Items {
		if s.Items[i].ShortVersion == version {
			return true
		}
	}

	return false
}

// Print writes the summary as an aligned table.
func Print(w io.Writer, s *FeedSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintln(tw, "VERSION\tBUILD\tPUBLISHED\tLENGTH\tURL"); err != nil {
		return err
	}

	for _, item := range s.Items {
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			item.ShortVersion, item.Build, item.Published, item.EnclosureLength, item.EnclosureURL,
		); err != nil {
			return err
		}
	}

	return tw.Flush()
}

func summarize(item *gofeed.Item) ItemSummary {
	summary := ItemSummary{
		Title:        item.Title,
		Published:    item.Published,
		Build:        sparkleValue(item.Extensions, "version"),
		ShortVersion: sparkleValue(item.Extensions, "shortVersionString"),
	}

	if len(item.Enclosures) > 0 && item.Enclosures[0] != nil {
		summary.EnclosureURL = item.Enclosures[0].URL
		summary.EnclosureLength = item.Enclosures[0].Length
	}

	return summary
}

func sparkleValue(extensions ext.Extensions, name string) string {
	values := extensions[appcast.SparklePrefix][name]
	if len(values) == 0 {
		return ""
	}

	return values[0].Value
}
