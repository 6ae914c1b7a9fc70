// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/folio/internal/recommend"
)

// keyPrefix namespaces cached responses inside the Badger keyspace.
const keyPrefix = "rec:"

// BadgerCache is a durable result cache on BadgerDB. Entries carry a Badger
// TTL, so expired responses are never returned and are reclaimed by
// compaction. It survives restarts, which matters because cache keys embed
// the model version.
type BadgerCache struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenBadger opens (or creates) a Badger database at path.
func OpenBadger(path string, ttl time.Duration) (*BadgerCache, error) {
	if path == "" {
		return nil, errors.New("badger cache path is empty")
	}
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.ValueLogFileSize = 64 << 20

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return NewBadgerCache(db, ttl), nil
}

// NewBadgerCache wraps an already open database. The caller keeps
// ownership of db unless Close is called.
func NewBadgerCache(db *badger.DB, ttl time.Duration) *BadgerCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &BadgerCache{db: db, ttl: ttl}
}

// Get returns the response stored under key.
func (c *BadgerCache) Get(ctx context.Context, key string) (*recommend.Response, bool, error) {
	data, ok, err := c.GetBytes(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	var resp recommend.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, false, fmt.Errorf("decode cached response: %w", err)
	}
	return &resp, true, nil
}

// Set stores resp under key for the configured TTL.
func (c *BadgerCache) Set(ctx context.Context, key string, resp *recommend.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return c.SetBytes(ctx, key, data)
}

// GetBytes returns a copy of the value stored under key.
func (c *BadgerCache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var data []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(storageKey(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached value: %w", err)
	}
	return data, true, nil
}

// SetBytes stores data under key for the configured TTL.
func (c *BadgerCache) SetBytes(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(storageKey(key), data).WithTTL(c.ttl)
		if err := txn.SetEntry(e); err != nil {
			return fmt.Errorf("set cached value: %w", err)
		}
		return nil
	})
}

// Purge drops every cached value, e.g. after a model swap.
func (c *BadgerCache) Purge() error {
	if err := c.db.DropPrefix([]byte(keyPrefix)); err != nil {
		return fmt.Errorf("purge cache: %w", err)
	}
	return nil
}

// Len counts the live entries.
func (c *BadgerCache) Len() (int, error) {
	n := 0
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if !it.Item().IsDeletedOrExpired() {
				n++
			}
		}
		return nil
	})
	return n, err
}

// RunGC runs one value-log garbage collection pass. Badger reports
// ErrNoRewrite when nothing was reclaimable; that is not an error here.
func (c *BadgerCache) RunGC() error {
	err := c.db.RunValueLogGC(0.5)
	if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		return fmt.Errorf("value log gc: %w", err)
	}
	return nil
}

// Maintain runs value-log GC; it satisfies Maintainer.
func (c *BadgerCache) Maintain() error {
	return c.RunGC()
}

// Close closes the underlying database.
func (c *BadgerCache) Close() error {
	return c.db.Close()
}

// storageKey prefixes key unless the recommender already did. Prediction
// keys get the prefix too, so Purge and Len cover them.
func storageKey(key string) []byte {
	if strings.HasPrefix(key, keyPrefix) {
		return []byte(key)
	}
	return []byte(keyPrefix + key)
}
