// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

/*
Package cache stores finished recommendation responses.

Two backends satisfy the recommender's result cache:

  - LRUCache: in-process, bounded by entry count, lazy TTL expiry
  - BadgerCache: BadgerDB on disk, native entry TTL, survives restarts

Both encode responses as JSON, so a response returned by Get is always a
private copy the caller may modify.

Keys are produced by the recommender and already include the model
version, the strategy and every request input that affects the result, so
entries from an older model are never served after a swap; they simply
expire. Purge drops them eagerly.

New puts the Badger backend behind a BreakerStore (sony/gobreaker). After
consecutive I/O failures the circuit opens and the cache behaves as empty
until a trial request succeeds.

# Usage

	store, err := cache.New(cache.Config{Backend: cache.BackendBadger, Path: "data/cache", TTL: 10 * time.Minute})
	if err != nil {
	    return err
	}
	if store != nil {
	    defer store.Close()
	    opts = append(opts, engine.WithCache(store))
	}
*/
package cache
