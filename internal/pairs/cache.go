// File: internal/pairs/cache.go
// ============================================
package pairs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"crypto-signal-bot/internal/fileutil"
)

// FileCache keeps the last ranking in a JSON file next to the position store
type FileCache struct {
	path string
}

func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

func (f *FileCache) Load(_ context.Context) (Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Snapshot{}, ErrCacheMiss
		}
		return Snapshot{}, fmt.Errorf("pairs: read cache: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("pairs: decode cache: %w", err)
	}
	return snap, nil
}

func (f *FileCache) Store(_ context.Context, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("pairs: encode cache: %w", err)
	}

	if err := fileutil.WriteAtomic(f.path, data); err != nil {
		return fmt.Errorf("pairs: write cache: %w", err)
	}
	return nil
}
