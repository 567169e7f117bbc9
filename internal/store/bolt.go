package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"nudge/internal/logger"
)

var (
	bucketCache = []byte("cache")
	keyDocument = []byte("document")
)

// BoltStore keeps the cache document in a bbolt database. bbolt's file lock
// serializes writers, so the read-compare-write in Save is a real
// compare-and-swap across processes.
type BoltStore struct {
	db   *bbolt.DB
	path string
}

// OpenBolt opens (or creates) the database at path.
func OpenBolt(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	return &BoltStore{db: db, path: path}, nil
}

// Path returns the database location
func (s *BoltStore) Path() string { return s.path }

// Close releases the database and its lock
func (s *BoltStore) Close() error { return s.db.Close() }

// Load reads the cache document; missing or invalid data yields a fresh cache.
func (s *BoltStore) Load(ctx context.Context) (*Cache, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := logger.With("store")

	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketCache)
		if b == nil {
			return nil
		}
		if v := b.Get(keyDocument); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		log.Warn("cache database unreadable, starting fresh", "path", s.path, "error", err)
		return NewCache(), nil
	}
	if data == nil {
		return NewCache(), nil
	}

	c, err := decode(data)
	if err != nil {
		log.Warn("cache document corrupt, starting fresh", "path", s.path, "error", err)
		c = NewCache()
	}
	c.digest = digest(data)
	c.loaded = true
	return c, nil
}

// Save merges and writes the document inside one write transaction.
func (s *BoltStore) Save(ctx context.Context, c *Cache) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var saved []byte
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketCache)
		if err != nil {
			return err
		}
		if current := b.Get(keyDocument); current != nil {
			reconcile(c, append([]byte(nil), current...))
		}
		data, err := encode(c)
		if err != nil {
			return err
		}
		if err := b.Put(keyDocument, data); err != nil {
			return err
		}
		saved = data
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save cache: %w", err)
	}
	markSaved(c, saved)
	return nil
}
