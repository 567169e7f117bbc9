package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"

	"nudge/internal/config"
)

// Store loads and persists the Cache. Load never fails on missing or
// corrupt data: it returns a fresh cache instead.
type Store interface {
	Load(ctx context.Context) (*Cache, error)
	Save(ctx context.Context, c *Cache) error
	Path() string
	Close() error
}

// Open returns the backend selected by cfg.
func Open(cfg config.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case "", "json":
		path := cfg.Path
		if path == "" {
			path = DefaultPath("cache.json")
		}
		return NewFileStore(path), nil
	case "bbolt", "bolt":
		path := cfg.Path
		if path == "" {
			path = DefaultPath("cache.db")
		}
		return OpenBolt(path)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// DefaultPath places name in the user cache directory, falling back to
// ~/.nudge and then the temp directory when that is unavailable.
func DefaultPath(name string) string {
	var candidates []string
	if dir, err := os.UserCacheDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "nudge"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".nudge"))
	}
	for _, dir := range candidates {
		if err := os.MkdirAll(dir, 0o755); err == nil {
			return filepath.Join(dir, name)
		}
	}
	return filepath.Join(os.TempDir(), "nudge-"+name)
}

func encode(c *Cache) ([]byte, error) {
	c.Version = SchemaVersion
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cache: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*Cache, error) {
	c := NewCache()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to decode cache: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	c.normalize()
	c.Version = SchemaVersion
	return c, nil
}

func digest(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// reconcile merges a concurrently written on-disk document into c unless c
// is authoritative or the disk still holds what c was loaded from.
func reconcile(c *Cache, onDisk []byte) {
	if c.authoritative || len(onDisk) == 0 {
		return
	}
	if c.loaded && digest(onDisk) == c.digest {
		return
	}
	other, err := decode(onDisk)
	if err != nil {
		return
	}
	c.mergeFrom(other)
}

// markSaved records that data is now what the backend holds.
func markSaved(c *Cache, data []byte) {
	c.digest = digest(data)
	c.loaded = true
	c.dirty = false
	c.authoritative = false
	c.prefSet = false
}

func writeAll(w io.Writer, data []byte) error {
	_, err := w.Write(data)
	return err
}

// WriteFileAtomic writes data to a temp file next to path and renames it
// into place, so readers see either the old or the new content.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	return writeFileAtomic(path, data, perm, writeAll)
}

func writeFileAtomic(path string, data []byte, perm os.FileMode, write func(io.Writer, []byte) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", tmp.Name(), err)
	}
	if err = tmp.Chmod(perm); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
