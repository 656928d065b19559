// Package cache implements the on-disk chunk cache described in spec §4.1:
// a directory of JSON files keyed by md5(tenant|document_id|chunk_size|
// chunk_overlap), guarded by gofrs/flock so concurrent ingestion jobs
// writing the same key don't corrupt each other — grounded on the
// home-directory state-file handling in Koopa0-koopa's internal/session
// package (MkdirAll + atomic temp-file-then-rename writes), generalized
// from a single well-known path to a directory of content-addressed keys.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/neurobridge/support-backend/internal/domain/support"
)

// Entry is the persisted cache payload for one (tenant, document_id,
// chunk_size, chunk_overlap) key.
type Entry struct {
	Chunks    []support.Chunk `json:"chunks"`
	Timestamp time.Time       `json:"timestamp"`
	Count     int             `json:"count"`
}

// Cache is a directory of JSON-encoded Entry files.
type Cache struct {
	dir string
}

func New(dir string) (*Cache, error) {
	if dir == "" {
		return nil, fmt.Errorf("chunk cache: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("chunk cache: create dir: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Key derives the cache key for a (tenant, document, chunk_size,
// chunk_overlap) tuple.
func Key(tenantID, documentID string, chunkSize, chunkOverlap int) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s|%s|%d|%d", tenantID, documentID, chunkSize, chunkOverlap)))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

func (c *Cache) lockPath(key string) string {
	return filepath.Join(c.dir, key+".lock")
}

// Get returns the cached entry for key, or (nil, nil) on a cache miss.
func (c *Cache) Get(key string) (*Entry, error) {
	raw, err := os.ReadFile(c.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("chunk cache: read %q: %w", key, err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("chunk cache: decode %q: %w", key, err)
	}
	return &e, nil
}

// Put writes chunks under key, guarded by an exclusive file lock so a
// concurrent writer for the same key can't interleave partial writes.
func (c *Cache) Put(key string, chunks []support.Chunk) error {
	lock := flock.New(c.lockPath(key))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("chunk cache: acquire lock %q: %w", key, err)
	}
	defer lock.Unlock()

	entry := Entry{Chunks: chunks, Timestamp: time.Now().UTC(), Count: len(chunks)}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("chunk cache: encode %q: %w", key, err)
	}

	tmp, err := os.CreateTemp(c.dir, key+".tmp-*")
	if err != nil {
		return fmt.Errorf("chunk cache: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("chunk cache: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chunk cache: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path(key)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chunk cache: rename into place: %w", err)
	}
	return nil
}

// Purge removes a single cache key.
func (c *Cache) Purge(key string) error {
	if err := os.Remove(c.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("chunk cache: purge %q: %w", key, err)
	}
	_ = os.Remove(c.lockPath(key))
	return nil
}

// PurgeAll removes every cached entry.
func (c *Cache) PurgeAll() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("chunk cache: read dir: %w", err)
	}
	for _, e := range entries {
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("chunk cache: remove %q: %w", e.Name(), err)
		}
	}
	return nil
}
