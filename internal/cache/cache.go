// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/folio/internal/recommend"
)

// Defaults applied when a size or TTL is left unset.
const (
	DefaultCapacity = 10000
	DefaultTTL      = 5 * time.Minute
)

// Backend names accepted by New.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendBadger = "badger"
)

// Store is a recommendation result cache that owns resources.
type Store interface {
	Get(ctx context.Context, key string) (*recommend.Response, bool, error)
	Set(ctx context.Context, key string, resp *recommend.Response) error
	Close() error
}

// Blob is implemented by stores that also hold encoded values other than
// recommendation responses. All stores built by New implement it.
type Blob interface {
	GetBytes(ctx context.Context, key string) ([]byte, bool, error)
	SetBytes(ctx context.Context, key string, data []byte) error
}

// Purger is implemented by stores that can drop every entry at once.
type Purger interface {
	Purge() error
}

// Maintainer is implemented by stores that need periodic housekeeping.
type Maintainer interface {
	Maintain() error
}

// Config selects and sizes a cache backend.
type Config struct {
	Backend  string
	Path     string // badger only
	Capacity int    // memory only
	TTL      time.Duration
}

// New builds the configured backend. BackendNone and an empty backend
// return a nil Store, meaning caching is disabled. The Badger backend sits
// behind a circuit breaker.
func New(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendNone:
		return nil, nil
	case BackendMemory:
		return NewLRUCache(cfg.Capacity, cfg.TTL), nil
	case BackendBadger:
		bc, err := OpenBadger(cfg.Path, cfg.TTL)
		if err != nil {
			return nil, err
		}
		return NewBreakerStore(bc, DefaultBreakerConfig()), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// Close is a no-op; it lets LRUCache satisfy Store.
func (c *LRUCache) Close() error { return nil }

// Purge drops every entry.
func (c *LRUCache) Purge() error {
	c.Clear()
	return nil
}

// Maintain drops expired entries.
func (c *LRUCache) Maintain() error {
	c.CleanupExpired()
	return nil
}
