// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package cache

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
)

// View stores JSON-encoded values of one type in a Store, under keys that
// begin with prefix. It shares the store's capacity, TTL and breaker.
type View[T any] struct {
	blob   Blob
	prefix string
}

// NewView returns a view on s. It reports false when s is nil or cannot
// hold raw values.
func NewView[T any](s Store, prefix string) (*View[T], bool) {
	blob, ok := s.(Blob)
	if !ok {
		return nil, false
	}
	return &View[T]{blob: blob, prefix: prefix}, true
}

// Get returns a private copy of the value stored under key.
func (v *View[T]) Get(ctx context.Context, key string) (*T, bool, error) {
	data, ok, err := v.blob.GetBytes(ctx, v.prefix+key)
	if err != nil || !ok {
		return nil, false, err
	}
	var val T
	if err := json.Unmarshal(data, &val); err != nil {
		return nil, false, fmt.Errorf("decode cached value: %w", err)
	}
	return &val, true, nil
}

// Set stores val under key.
func (v *View[T]) Set(ctx context.Context, key string, val *T) error {
	data, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	return v.blob.SetBytes(ctx, v.prefix+key, data)
}
