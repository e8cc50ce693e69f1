// File: internal/runlock/lock.go
// ============================================
package runlock

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrLocked means another run holds a lock that is not stale yet
var ErrLocked = errors.New("runlock: another run is in progress")

// FileLock guards the position store against overlapping runs. The lock file
// holds the owner pid and the time it was taken.
type FileLock struct {
	path       string
	staleAfter time.Duration
	now        func() time.Time
}

func NewFileLock(path string, staleAfter time.Duration) *FileLock {
	return &FileLock{path: path, staleAfter: staleAfter, now: time.Now}
}

func (l *FileLock) Path() string { return l.path }

// Acquire creates the lock file or takes over a stale one. The returned func
// removes it.
func (l *FileLock) Acquire() (func(), error) {
	err := l.create()
	if errors.Is(err, os.ErrExist) {
		if !l.stale() {
			return nil, ErrLocked
		}
		if rmErr := os.Remove(l.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return nil, fmt.Errorf("runlock: remove stale lock: %w", rmErr)
		}
		err = l.create()
		if errors.Is(err, os.ErrExist) {
			return nil, ErrLocked
		}
	}
	if err != nil {
		return nil, err
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		_ = os.Remove(l.path)
	}, nil
}

func (l *FileLock) create() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return err
		}
		return fmt.Errorf("runlock: create %s: %w", l.path, err)
	}

	content := fmt.Sprintf("%d %s\n", os.Getpid(), l.now().UTC().Format(time.RFC3339Nano))
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(l.path)
		return fmt.Errorf("runlock: write %s: %w", l.path, err)
	}
	return f.Close()
}

// stale reports whether the existing lock is older than staleAfter. An
// unreadable timestamp falls back to the file's modification time.
func (l *FileLock) stale() bool {
	if l.staleAfter <= 0 {
		return false
	}

	taken, ok := l.takenAt()
	if !ok {
		info, err := os.Stat(l.path)
		if err != nil {
			// gone in the meantime
			return errors.Is(err, os.ErrNotExist)
		}
		taken = info.ModTime()
	}
	return l.now().Sub(taken) > l.staleAfter
}

func (l *FileLock) takenAt() (time.Time, bool) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return time.Time{}, false
	}
	fields := strings.Fields(string(data))
	if len(fields) != 2 {
		return time.Time{}, false
	}
	if _, err := strconv.Atoi(fields[0]); err != nil {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, fields[1])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
