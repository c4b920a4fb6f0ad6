package feed

import (
	"bytes"
	"context"
	"crypto"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"
)

// Repository defines persistence operations for the appcast.
type Repository interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
	Create(ctx context.Context, doc *Document) error
	Lock(ctx context.Context) (func(), error)
}

// FileRepository keeps the appcast in a single XML file.
type FileRepository struct {
	// path is the filesystem location of the feed.
	path string
	// backupPath, when set, receives the previous feed on Save.
	backupPath string
}

// DefaultFileMode is used when creating a new feed file.
const DefaultFileMode os.FileMode = 0o644

var (
	// ErrFeedNotFound is returned when the feed file does not exist.
	ErrFeedNotFound = errors.New("feed not found")
	// ErrFeedExists is returned by Create when the feed file is already there.
	ErrFeedExists = errors.New("feed already exists")
)

// Option configures a FileRepository.
type Option func(*FileRepository)

// WithBackup keeps the replaced feed at path on every Save.
func WithBackup(path string) Option {
	return func(r *FileRepository) {
		if path != "" {
			r.backupPath = filepath.Clean(path)
		}
	}
}

// NewFileRepository creates a repository for the feed at path.
func NewFileRepository(path string, opts ...Option) *FileRepository {
	r := &FileRepository{
		path: filepath.Clean(path),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Path returns the feed location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads and parses the feed.
func (r *FileRepository) Load(_ context.Context) (*Document, error) {
	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", r.path, ErrFeedNotFound)
		}

		return nil, fmt.Errorf("read feed: %w", err)
	}

	doc, err := Parse(contents)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.path, err)
	}

	return doc, nil
}

// Save replaces the feed with doc.
func (r *FileRepository) Save(ctx context.Context, doc *Document) error {
	data, err := doc.Bytes()
	if err != nil {
		return err
	}

	return r.Replace(ctx, data)
}

// Replace writes serialized feed data over the existing feed. The data is
// staged next to the feed and renamed over it, so readers see either the
// old or the new file.
func (r *FileRepository) Replace(_ context.Context, data []byte) error {
	info, err := os.Stat(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", r.path, ErrFeedNotFound)
		}

		return fmt.Errorf("stat feed: %w", err)
	}

	checksum := sha256.Sum256(data)

	options := goupdate.Options{
		TargetPath:  r.path,
		TargetMode:  info.Mode().Perm(),
		Checksum:    checksum[:],
		Hash:        crypto.SHA256,
		OldSavePath: r.backupPath,
	}

	if err = goupdate.Apply(bytes.NewReader(data), options); err != nil {
		return fmt.Errorf("replace feed: %w", err)
	}

	return nil
}

// Create writes doc to a new feed file and refuses to overwrite an existing one.
func (r *FileRepository) Create(_ context.Context, doc *Document) error {
	data, err := doc.Bytes()
	if err != nil {
		return err
	}

	file, err := os.OpenFile(r.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, DefaultFileMode)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s: %w", r.path, ErrFeedExists)
		}

		return fmt.Errorf("create feed: %w", err)
	}

	if _, err = file.Write(data); err != nil {
		_ = file.Close()

		return fmt.Errorf("write feed: %w", err)
	}

	if err = file.Close(); err != nil {
		return fmt.Errorf("close feed: %w", err)
	}

	return nil
}
