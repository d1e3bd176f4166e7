package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// File is a Store that keeps one JSON envelope per key in a directory.
// It survives process restarts, which suits hosts that run the checker
// from short-lived cron invocations.
type File struct {
	dir   string
	clock Clock
}

type fileEntry struct {
	ExpiresAt time.Time `json:"expires_at"`
	Value     []byte    `json:"value"`
}

// NewFile creates a file store rooted at dir. The directory is created on first write.
func NewFile(dir string, clock Clock) *File {
	return &File{dir: dir, clock: clock}
}

// DefaultDir returns the default cache directory path.
func DefaultDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine cache directory: %w", err)
		}
		return filepath.Join(home, ".cache", "autoupdate"), nil
	}
	return filepath.Join(cacheDir, "autoupdate"), nil
}

// Get implements Store.
func (f *File) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var entry fileEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, fmt.Errorf("failed to parse cache entry: %w", err)
	}

	if !now(f.clock).Before(entry.ExpiresAt) {
		_ = os.Remove(f.path(key))
		return nil, false, nil
	}

	return entry.Value, true, nil
}

// Set implements Store.
func (f *File) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil { // #nosec G301 - Cache directory needs standard permissions
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.Marshal(fileEntry{
		ExpiresAt: now(f.clock).Add(ttl),
		Value:     value,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	// Write then rename so readers never see a partial entry.
	tmp, err := os.CreateTemp(f.dir, ".entry-*")
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	return nil
}

// path returns the entry file for key. Separators are replaced so a key
// can never escape the cache directory.
func (f *File) path(key string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(key)
	return filepath.Join(f.dir, safe+".json")
}
