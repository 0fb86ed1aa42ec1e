package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/swxkit/kpindex/pkg/types"
)

// CacheConfig holds the on-disk cache configuration.
type CacheConfig struct {
	Path             string
	CompressionLevel int
}

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Path:             "./data",
		CompressionLevel: 3,
	}
}

// Cache is a Source that materializes the inner source's table in a
// BadgerDB so that Load(false) serves from disk instead of refetching.
// Load(true) always goes through to the inner source and overwrites the
// stored table.
type Cache struct {
	cfg   *CacheConfig
	inner Source
	db    *badger.DB
	codec *blockCodec
}

// TableMeta describes the stored table.
type TableMeta struct {
	FetchedAt time.Time `json:"fetched_at"`
	Samples   int       `json:"samples"`
}

var (
	keyTable = []byte("kp/table")
	keyMeta  = []byte("kp/meta")
)

// NewCache opens (or creates) the cache database at cfg.Path and wraps
// the inner source with it.
func NewCache(inner Source, cfg *CacheConfig) (*Cache, error) {
	if cfg == nil {
		cfg = DefaultCacheConfig()
	}

	opts := badger.DefaultOptions(filepath.Join(cfg.Path, "badger"))
	opts.Logger = nil // Disable BadgerDB logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	codec, err := newBlockCodec(cfg.CompressionLevel)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create codec: %w", err)
	}

	return &Cache{
		cfg:   cfg,
		inner: inner,
		db:    db,
		codec: codec,
	}, nil
}

// Load implements Source.
func (c *Cache) Load(force bool) ([]types.Sample, error) {
	if !force {
		samples, ok, err := c.stored()
		if err != nil {
			return nil, err
		}
		if ok {
			return samples, nil
		}
	}

	samples, err := c.inner.Load(true)
	if err != nil {
		return nil, err
	}

	if err := c.store(samples); err != nil {
		return nil, err
	}
	return samples, nil
}

// Meta returns metadata about the stored table; ok is false when nothing
// has been stored yet.
func (c *Cache) Meta() (TableMeta, bool, error) {
	var raw []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyMeta)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			raw = append([]byte{}, val...)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return TableMeta{}, false, nil
	}
	if err != nil {
		return TableMeta{}, false, fmt.Errorf("read table metadata: %w", err)
	}

	var meta TableMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return TableMeta{}, false, fmt.Errorf("decode table metadata: %w", err)
	}
	return meta, true, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	if c.codec != nil {
		c.codec.Close()
	}
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// stored reads and decodes the materialized table, if any.
func (c *Cache) stored() ([]types.Sample, bool, error) {
	var payload []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyTable)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			payload = append([]byte{}, val...)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cached table: %w", err)
	}

	samples, err := c.codec.Decode(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode cached table: %w", err)
	}
	return samples, true, nil
}

// store encodes and writes the table plus its metadata.
func (c *Cache) store(samples []types.Sample) error {
	payload, err := c.codec.Encode(samples)
	if err != nil {
		return fmt.Errorf("encode table: %w", err)
	}

	meta, err := json.Marshal(TableMeta{
		FetchedAt: time.Now().UTC(),
		Samples:   len(samples),
	})
	if err != nil {
		return fmt.Errorf("encode table metadata: %w", err)
	}

	return c.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(keyTable, payload); err != nil {
			return err
		}
		return txn.Set(keyMeta, meta)
	})
}
