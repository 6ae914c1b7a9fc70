// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/folio/internal/recommend"
)

// lruEntry is a node of the recency list.
type lruEntry struct {
	key       string
	value     []byte
	prev      *lruEntry
	next      *lruEntry
	expiresAt time.Time
}

// LRUCache is an in-process result cache with least-recently-used eviction
// and a fixed TTL. Responses are stored encoded, so a cached response is
// never aliased by callers.
//
// Get, Set and eviction are O(1): a map indexes the nodes of a doubly-linked
// list whose head is the most recently used entry.
type LRUCache struct {
	mu sync.Mutex

	capacity int
	ttl      time.Duration
	items    map[string]*lruEntry

	// head.next is the most recently used, tail.prev the least.
	head *lruEntry
	tail *lruEntry

	hits   int64
	misses int64

	now func() time.Time
}

// NewLRUCache creates a cache holding at most capacity responses for ttl.
func NewLRUCache(capacity int, ttl time.Duration) *LRUCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c := &LRUCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*lruEntry, capacity),
		head:     &lruEntry{},
		tail:     &lruEntry{},
		now:      time.Now,
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get returns a fresh copy of the response stored under key.
func (c *LRUCache) Get(ctx context.Context, key string) (*recommend.Response, bool, error) {
	data, ok, _ := c.GetBytes(ctx, key)
	if !ok {
		return nil, false, nil
	}
	var resp recommend.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, false, fmt.Errorf("decode cached response: %w", err)
	}
	return &resp, true, nil
}

// Set stores resp under key, evicting the least recently used entry when
// the cache is full.
func (c *LRUCache) Set(ctx context.Context, key string, resp *recommend.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return c.SetBytes(ctx, key, data)
}

// GetBytes returns the encoded value stored under key. The slice is never
// modified in place, so callers may keep it.
func (c *LRUCache) GetBytes(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.items[key]
	if ok && c.now().After(entry.expiresAt) {
		c.removeEntry(entry)
		ok = false
	}
	if !ok {
		c.misses++
		return nil, false, nil
	}
	c.moveToFront(entry)
	c.hits++
	return entry.value, true, nil
}

// SetBytes stores data under key. The cache takes ownership of data.
func (c *LRUCache) SetBytes(_ context.Context, key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)
	if entry, exists := c.items[key]; exists {
		entry.value = data
		entry.expiresAt = expiresAt
		c.moveToFront(entry)
		return nil
	}

	entry := &lruEntry{key: key, value: data, expiresAt: expiresAt}
	c.addToFront(entry)
	c.items[key] = entry
	for len(c.items) > c.capacity {
		c.evictOldest()
	}
	return nil
}

// Remove deletes key and reports whether it was present.
func (c *LRUCache) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.items[key]; exists {
		c.removeEntry(entry)
		return true
	}
	return false
}

// Len returns the number of stored entries, expired ones included.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear removes every entry.
func (c *LRUCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*lruEntry, c.capacity)
	c.head.next = c.tail
	c.tail.prev = c.head
}

// CleanupExpired removes expired entries and returns how many were dropped.
func (c *LRUCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for entry := c.tail.prev; entry != c.head; {
		prev := entry.prev
		if now.After(entry.expiresAt) {
			c.removeEntry(entry)
			removed++
		}
		entry = prev
	}
	return removed
}

// Stats returns hit and miss counts and the current size.
func (c *LRUCache) Stats() (hits, misses int64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, len(c.items)
}

// The methods below must be called with mu held.

func (c *LRUCache) addToFront(entry *lruEntry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *LRUCache) moveToFront(entry *lruEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	c.addToFront(entry)
}

func (c *LRUCache) removeEntry(entry *lruEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(c.items, entry.key)
}

func (c *LRUCache) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.removeEntry(oldest)
}
