// Package cache remembers file digests across runs so unchanged files are
// not read again.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const keyPrefix = "digest:"

// Key identifies a digest. A file whose size or modification time changed
// produces a different key and therefore misses.
type Key struct {
	Algorithm string
	// Limit is the prefix window, or a negative value for a full digest.
	Limit   int64
	Path    string
	Size    int64
	ModTime time.Time
}

func (k Key) bytes() []byte {
	return []byte(fmt.Sprintf("%s%s:%d:%d:%d:%s",
		keyPrefix, k.Algorithm, k.Limit, k.Size, k.ModTime.UnixNano(), k.Path))
}

// Entry is the stored value.
type Entry struct {
	Digest   string    `json:"digest"`
	StoredAt time.Time `json:"stored_at"`
}

type Stats struct {
	Hits   int64
	Misses int64
	Writes int64
}

// Options configures Open.
type Options struct {
	// Dir holds the badger files. Ignored when InMemory is set.
	Dir      string
	InMemory bool
	// Size is the number of digests kept in the LRU front.
	Size   int
	Logger *zap.Logger
}

// Cache is a badger store fronted by an LRU. It is safe for concurrent use.
type Cache struct {
	db     *badger.DB
	ownsDB bool
	front  *lru.Cache[string, string]
	logger *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
	writes atomic.Int64
}

// Open creates or opens the cache directory.
func Open(opts Options) (*Cache, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Dir == "" {
			return nil, fmt.Errorf("cache directory is required")
		}
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
		bopts = badger.DefaultOptions(opts.Dir)
	}
	bopts = bopts.WithLogger(nil).WithNumVersionsToKeep(1)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	c, err := New(db, opts.Size, opts.Logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	c.ownsDB = true
	return c, nil
}

// New wraps an already open database. The caller keeps ownership of db.
func New(db *badger.DB, size int, logger *zap.Logger) (*Cache, error) {
	if size <= 0 {
		size = 4096
	}
	front, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("creating lru: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{db: db, front: front, logger: logger}, nil
}

// Get returns the digest stored for k.
func (c *Cache) Get(k Key) (string, bool) {
	key := k.bytes()
	if digest, ok := c.front.Get(string(key)); ok {
		c.hits.Add(1)
		return digest, true
	}

	var entry Entry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			c.logger.Warn("reading digest cache", zap.String("path", k.Path), zap.Error(err))
		}
		c.misses.Add(1)
		return "", false
	}

	c.front.Add(string(key), entry.Digest)
	c.hits.Add(1)
	return entry.Digest, true
}

// Put stores digest under k.
func (c *Cache) Put(k Key, digest string) error {
	key := k.bytes()
	data, err := json.Marshal(Entry{Digest: digest, StoredAt: time.Now()})
	if err != nil {
		return fmt.Errorf("marshaling entry: %w", err)
	}

	if err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	}); err != nil {
		return fmt.Errorf("storing digest: %w", err)
	}
	c.front.Add(string(key), digest)
	c.writes.Add(1)
	return nil
}

// Len counts stored digests.
func (c *Cache) Len() (int, error) {
	n := 0
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return n, nil
}

// Clear drops every stored digest.
func (c *Cache) Clear() error {
	if err := c.db.DropPrefix([]byte(keyPrefix)); err != nil {
		return fmt.Errorf("dropping digests: %w", err)
	}
	c.front.Purge()
	return nil
}

func (c *Cache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Writes: c.writes.Load(),
	}
}

// Close closes the database if Open created it.
func (c *Cache) Close() error {
	if !c.ownsDB {
		return nil
	}
	return c.db.Close()
}
