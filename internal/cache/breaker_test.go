// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/folio/internal/recommend"
)

var errDisk = errors.New("disk on fire")

// flakyStore fails every call while failErr is set.
type flakyStore struct {
	mu      sync.Mutex
	failErr error
	calls   int
	data    map[string]*recommend.Response
	purged  int
	gcRuns  int
}

func newFlakyStore() *flakyStore {
	return &flakyStore{data: make(map[string]*recommend.Response)}
}

func (f *flakyStore) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failErr = err
}

func (f *flakyStore) Get(_ context.Context, key string) (*recommend.Response, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failErr != nil {
		return nil, false, f.failErr
	}
	resp, ok := f.data[key]
	return resp, ok, nil
}

func (f *flakyStore) Set(_ context.Context, key string, resp *recommend.Response) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failErr != nil {
		return f.failErr
	}
	f.data[key] = resp
	return nil
}

func (f *flakyStore) Purge() error    { f.purged++; return nil }
func (f *flakyStore) Maintain() error { f.gcRuns++; return nil }
func (f *flakyStore) Close() error    { return nil }

func (f *flakyStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// bareStore hides every method but those of Store.
type bareStore struct{ Store }

func TestBreakerStore_PassThrough(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := NewBreakerStore(newFlakyStore(), BreakerConfig{Name: "test-pass", FailureThreshold: 3, Timeout: time.Minute})

	if _, ok, err := b.Get(ctx, "rec:a"); ok || err != nil {
		t.Fatalf("Get(empty) = %v, %v, want miss", ok, err)
	}
	want := testResponse("item_1")
	if err := b.Set(ctx, "rec:a", want); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, ok, err := b.Get(ctx, "rec:a")
	if err != nil || !ok || got != want {
		t.Errorf("Get() = %v, %v, %v, want stored response", got, ok, err)
	}
	if b.State() != "closed" {
		t.Errorf("State() = %q, want closed", b.State())
	}
}

func TestBreakerStore_OpensAndRecovers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newFlakyStore()
	store.setErr(errDisk)
	b := NewBreakerStore(store, BreakerConfig{Name: "test-trip", FailureThreshold: 3, Timeout: 50 * time.Millisecond})

	for i := 0; i < 3; i++ {
		if _, _, err := b.Get(ctx, "rec:a"); !errors.Is(err, errDisk) {
			t.Fatalf("Get() #%d error = %v, want errDisk", i, err)
		}
	}
	if b.State() != "open" {
		t.Fatalf("State() = %q after 3 failures, want open", b.State())
	}

	// Open circuit: misses and dropped writes, backend untouched.
	calls := store.callCount()
	if _, ok, err := b.Get(ctx, "rec:a"); ok || err != nil {
		t.Errorf("Get(open) = %v, %v, want silent miss", ok, err)
	}
	if err := b.Set(ctx, "rec:a", testResponse("item_1")); err != nil {
		t.Errorf("Set(open) error = %v, want nil", err)
	}
	if store.callCount() != calls {
		t.Errorf("backend called %d times while open", store.callCount()-calls)
	}

	store.setErr(nil)
	time.Sleep(80 * time.Millisecond)

	if err := b.Set(ctx, "rec:a", testResponse("item_1")); err != nil {
		t.Fatalf("Set(half-open) error = %v", err)
	}
	if b.State() != "closed" {
		t.Errorf("State() = %q after a successful trial, want closed", b.State())
	}
	if _, ok, err := b.Get(ctx, "rec:a"); !ok || err != nil {
		t.Errorf("Get(recovered) = %v, %v, want hit", ok, err)
	}
}

func TestBreakerStore_CancellationDoesNotTrip(t *testing.T) {
	t.Parallel()

	store := newFlakyStore()
	store.setErr(context.Canceled)
	b := NewBreakerStore(store, BreakerConfig{Name: "test-cancel", FailureThreshold: 2, Timeout: time.Minute})

	for i := 0; i < 5; i++ {
		if _, _, err := b.Get(context.Background(), "rec:a"); !errors.Is(err, context.Canceled) {
			t.Fatalf("Get() error = %v, want context.Canceled", err)
		}
	}
	if b.State() != "closed" {
		t.Errorf("State() = %q, want closed", b.State())
	}
}

func TestBreakerStore_Forwarding(t *testing.T) {
	t.Parallel()

	store := newFlakyStore()
	b := NewBreakerStore(store, BreakerConfig{})
	if err := b.Purge(); err != nil || store.purged != 1 {
		t.Errorf("Purge() = %v, purged %d, want forwarded once", err, store.purged)
	}
	if err := b.Maintain(); err != nil || store.gcRuns != 1 {
		t.Errorf("Maintain() = %v, runs %d, want forwarded once", err, store.gcRuns)
	}

	// A store without the optional interfaces is a no-op.
	plain := NewBreakerStore(bareStore{NewLRUCache(4, time.Minute)}, BreakerConfig{Name: "test-plain"})
	if err := plain.Purge(); err != nil {
		t.Errorf("Purge(bare) error = %v", err)
	}
	if err := plain.Maintain(); err != nil {
		t.Errorf("Maintain(bare) error = %v", err)
	}
}
