package runlock

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLock_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "active_buys.json.lock")
	lock := NewFileLock(path, time.Hour)

	release, err := lock.Acquire()
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), fmt.Sprintf("%d ", os.Getpid()))

	_, err = NewFileLock(path, time.Hour).Acquire()
	assert.ErrorIs(t, err, ErrLocked)

	release()
	release()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	release, err = lock.Acquire()
	require.NoError(t, err)
	release()
}

func TestFileLock_TakesOverStaleLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")
	taken := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.WriteFile(path, []byte("4242 "+taken.Format(time.RFC3339Nano)+"\n"), 0o644))

	lock := NewFileLock(path, time.Hour)
	lock.now = func() time.Time { return taken.Add(30 * time.Minute) }
	_, err := lock.Acquire()
	assert.ErrorIs(t, err, ErrLocked)

	lock.now = func() time.Time { return taken.Add(2 * time.Hour) }
	release, err := lock.Acquire()
	require.NoError(t, err)
	defer release()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "2024-03-01T14:00:00Z")
}

func TestFileLock_UnparsableLockUsesModTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))
	old := time.Now().Add(-3 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	release, err := NewFileLock(path, time.Hour).Acquire()
	require.NoError(t, err)
	release()
}

func TestFileLock_NoStaleAfterNeverTakesOver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")
	require.NoError(t, os.WriteFile(path, []byte("1 2000-01-01T00:00:00Z\n"), 0o644))

	_, err := NewFileLock(path, 0).Acquire()
	assert.ErrorIs(t, err, ErrLocked)
}
