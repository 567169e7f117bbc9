package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"nudge/internal/logger"
)

// FileStore keeps the cache as a single JSON document replaced atomically on
// every save.
type FileStore struct {
	path  string
	write func(io.Writer, []byte) error
}

// NewFileStore creates a store backed by the JSON file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, write: writeAll}
}

// Path returns the cache file location
func (s *FileStore) Path() string { return s.path }

// Close is a no-op; the file is never held open.
func (s *FileStore) Close() error { return nil }

// Load reads the cache file. A missing, unreadable or invalid file yields a
// fresh cache; the problem is logged, not returned.
func (s *FileStore) Load(ctx context.Context) (*Cache, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := logger.With("store")

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("cache unreadable, starting fresh", "path", s.path, "error", err)
		}
		return NewCache(), nil
	}

	c, err := decode(data)
	if err != nil {
		log.Warn("cache corrupt, starting fresh", "path", s.path, "error", err)
		c = NewCache()
	}
	// Remember what was on disk even when it was unusable, so the next save
	// replaces it instead of trying to merge with it.
	c.digest = digest(data)
	c.loaded = true
	return c, nil
}

// Save merges any concurrent update found on disk, then replaces the file.
func (s *FileStore) Save(ctx context.Context, c *Cache) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if current, err := os.ReadFile(s.path); err == nil {
		reconcile(c, current)
	}

	data, err := encode(c)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.path, data, 0o600, s.write); err != nil {
		return fmt.Errorf("failed to save cache: %w", err)
	}
	markSaved(c, data)
	return nil
}
