// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package cache

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/folio/internal/recommend"
)

func testResponse(ids ...recommend.ItemID) *recommend.Response {
	resp := &recommend.Response{
		Items:        make([]recommend.ScoredItem, len(ids)),
		Strategy:     recommend.StrategyContent,
		Seeds:        []recommend.ItemID{"seed"},
		K:            len(ids),
		ModelVersion: 3,
	}
	for i, id := range ids {
		resp.Items[i] = recommend.ScoredItem{ID: id, Title: "title " + string(id), Score: 1 / float64(i+1)}
	}
	return resp
}

// fakeClock lets tests move time without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestLRU(capacity int, ttl time.Duration) (*LRUCache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache(capacity, ttl)
	c.now = clock.Now
	return c, clock
}

func TestLRUCache_SetGet(t *testing.T) {
	t.Parallel()

	c, _ := newTestLRU(3, time.Minute)
	ctx := context.Background()
	want := testResponse("a", "b")

	if err := c.Set(ctx, "rec:1", want); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, ok, err := c.Get(ctx, "rec:1")
	if err != nil || !ok {
		t.Fatalf("Get() = _, %v, %v, want hit", ok, err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}

	// Mutating the returned copy must not reach the cache.
	got.Items[0].ID = "mutated"
	got.CacheHit = true
	again, _, _ := c.Get(ctx, "rec:1")
	if again.Items[0].ID != "a" || again.CacheHit {
		t.Errorf("cached entry aliased by caller: %+v", again)
	}

	if _, ok, _ := c.Get(ctx, "rec:missing"); ok {
		t.Error("Get(missing) hit, want miss")
	}
	hits, misses, size := c.Stats()
	if hits != 2 || misses != 1 || size != 1 {
		t.Errorf("Stats() = %d, %d, %d, want 2, 1, 1", hits, misses, size)
	}
}

func TestLRUCache_Eviction(t *testing.T) {
	t.Parallel()

	c, _ := newTestLRU(3, time.Minute)
	ctx := context.Background()
	for _, k := range []string{"a", "b", "c"} {
		_ = c.Set(ctx, k, testResponse(recommend.ItemID(k)))
	}

	// Touch a so that b becomes least recently used.
	if _, ok, _ := c.Get(ctx, "a"); !ok {
		t.Fatal("Get(a) missed")
	}
	_ = c.Set(ctx, "d", testResponse("d"))

	tests := []struct {
		key  string
		want bool
	}{
		{"a", true},
		{"b", false},
		{"c", true},
		{"d", true},
	}
	for _, tt := range tests {
		if _, ok, _ := c.Get(ctx, tt.key); ok != tt.want {
			t.Errorf("Get(%s) hit = %v, want %v", tt.key, ok, tt.want)
		}
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
}

func TestLRUCache_TTL(t *testing.T) {
	t.Parallel()

	c, clock := newTestLRU(10, time.Minute)
	ctx := context.Background()
	_ = c.Set(ctx, "old", testResponse("a"))
	clock.Advance(40 * time.Second)
	_ = c.Set(ctx, "new", testResponse("b"))
	clock.Advance(30 * time.Second)

	if _, ok, _ := c.Get(ctx, "old"); ok {
		t.Error("Get(old) hit after TTL, want miss")
	}
	if _, ok, _ := c.Get(ctx, "new"); !ok {
		t.Error("Get(new) missed within TTL")
	}

	clock.Advance(time.Minute)
	if removed := c.CleanupExpired(); removed != 1 {
		t.Errorf("CleanupExpired() = %d, want 1", removed)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestLRUCache_OverwriteRefreshes(t *testing.T) {
	t.Parallel()

	c, clock := newTestLRU(2, time.Minute)
	ctx := context.Background()
	_ = c.Set(ctx, "k", testResponse("a"))
	clock.Advance(50 * time.Second)
	_ = c.Set(ctx, "k", testResponse("b"))
	clock.Advance(50 * time.Second)

	got, ok, _ := c.Get(ctx, "k")
	if !ok {
		t.Fatal("Get() missed after refresh")
	}
	if got.Items[0].ID != "b" {
		t.Errorf("Get() item = %s, want b", got.Items[0].ID)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestLRUCache_RemoveClear(t *testing.T) {
	t.Parallel()

	c, _ := newTestLRU(5, time.Minute)
	ctx := context.Background()
	_ = c.Set(ctx, "a", testResponse("a"))
	_ = c.Set(ctx, "b", testResponse("b"))

	if !c.Remove("a") {
		t.Error("Remove(a) = false, want true")
	}
	if c.Remove("a") {
		t.Error("second Remove(a) = true, want false")
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", c.Len())
	}
	_ = c.Set(ctx, "c", testResponse("c"))
	if _, ok, _ := c.Get(ctx, "c"); !ok {
		t.Error("Get(c) missed after Clear")
	}
}

func TestLRUCache_Defaults(t *testing.T) {
	t.Parallel()

	c := NewLRUCache(0, 0)
	if c.capacity != DefaultCapacity || c.ttl != DefaultTTL {
		t.Errorf("defaults = %d, %v, want %d, %v", c.capacity, c.ttl, DefaultCapacity, DefaultTTL)
	}
}

func TestLRUCache_Concurrent(t *testing.T) {
	t.Parallel()

	c := NewLRUCache(50, time.Minute)
	ctx := context.Background()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("rec:%d", (g*200+i)%80)
				_ = c.Set(ctx, key, testResponse("x"))
				_, _, _ = c.Get(ctx, key)
			}
		}(g)
	}
	wg.Wait()
	if c.Len() > 50 {
		t.Errorf("Len() = %d, want at most 50", c.Len())
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantNil bool
		wantErr bool
	}{
		{"disabled", Config{Backend: BackendNone}, true, false},
		{"empty backend", Config{}, true, false},
		{"memory", Config{Backend: BackendMemory, Capacity: 10}, false, false},
		{"badger without path", Config{Backend: BackendBadger}, true, true},
		{"unknown", Config{Backend: "redis"}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if (store == nil) != tt.wantNil {
				t.Errorf("New() store = %v, wantNil %v", store, tt.wantNil)
			}
			if store != nil {
				_ = store.Close()
			}
		})
	}
}
