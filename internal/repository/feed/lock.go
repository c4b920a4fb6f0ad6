package feed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/theacharya/appcast-updater/internal/logger"
)

const (
	// LockSuffix is appended to the feed path to name the run lock.
	LockSuffix = ".lock"

	// lockLifetime is how long a lock with an unreadable owner is honoured.
	lockLifetime = 30 * time.Second

	lockFileMode os.FileMode = 0o600
)

// ErrFeedLocked is returned when another run holds the feed lock.
var ErrFeedLocked = errors.New("feed is locked by another run")

// Lock marks the feed as being updated and returns a function releasing it.
// An existing lock is honoured while its owner process is alive; locks left
// behind by crashed runs are removed.
func (r *FileRepository) Lock(ctx context.Context) (func(), error) {
	lockPath := r.path + LockSuffix

	if r.isLockedByAnotherRun(ctx, lockPath) {
		return nil, fmt.Errorf("%s: %w", lockPath, ErrFeedLocked)
	}

	file, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, lockFileMode)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%s: %w", lockPath, ErrFeedLocked)
		}

		return nil, fmt.Errorf("create lock: %w", err)
	}

	_, writeErr := file.WriteString(strconv.Itoa(os.Getpid()))
	closeErr := file.Close()

	if err = errors.Join(writeErr, closeErr); err != nil {
		_ = os.Remove(lockPath)

		return nil, fmt.Errorf("write lock: %w", err)
	}

	logger.DebugKV(ctx, "Acquired feed lock", "path", lockPath)

	return func() {
		if err := os.Remove(lockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.WarnKV(ctx, "Unable to remove feed lock", "path", lockPath, "error", err)
		}
	}, nil
}

// isLockedByAnotherRun inspects an existing lock and removes it when stale.
func (r *FileRepository) isLockedByAnotherRun(ctx context.Context, lockPath string) bool {
	info, err := os.Stat(lockPath)
	if errors.Is(err, os.ErrNotExist) {
		return false
	}

	if err != nil {
		logger.WarnKV(ctx, "Unable to inspect feed lock", "path", lockPath, "error", err)

		return true
	}

	contents, err := os.ReadFile(lockPath)
	if err != nil {
		return true
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil || pid <= 0 {
		if time.Since(info.ModTime()) <= lockLifetime {
			return true
		}
	} else if isUpdaterProcess(pid) {
		return true
	}

	logger.InfoKV(ctx, "Removing stale feed lock", "path", lockPath)

	return !removeStaleLock(lockPath, info)
}

// removeStaleLock moves the lock aside and deletes it only if it is still the
// file described by stale. A lock another run created in the meantime is put
// back. It reports whether the path is free to be locked.
func removeStaleLock(lockPath string, stale os.FileInfo) bool {
	moved := fmt.Sprintf("%s.%d.stale", lockPath, os.Getpid())

	if err := os.Rename(lockPath, moved); err != nil {
		// Another run already cleared it.
		return errors.Is(err, os.ErrNotExist)
	}

	defer func() {
		_ = os.Remove(moved)
	}()

	current, err := os.Stat(moved)
	if err == nil && os.SameFile(stale, current) {
		return true
	}

	// Fails when yet another lock took the path, which then stays the owner.
	_ = os.Link(moved, lockPath)

	return false
}

// isUpdaterProcess reports whether pid is alive and runs the same executable as this process.
func isUpdaterProcess(pid int) bool {
	owner, err := ps.FindProcess(pid)
	if err != nil || owner == nil {
		return false
	}

	self, err := ps.FindProcess(os.Getpid())
	if err != nil || self == nil {
		// Without our own name to compare against, a live owner wins.
		return true
	}

	return owner.Executable() == self.Executable()
}
