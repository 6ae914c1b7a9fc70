// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package cache

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/metrics"
	"github.com/tomtom215/folio/internal/recommend"
)

// BreakerConfig tunes the circuit breaker in front of a cache backend.
type BreakerConfig struct {
	Name string

	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold uint32

	// Timeout is how long the circuit stays open before a trial request.
	Timeout time.Duration
}

// DefaultBreakerConfig returns the settings used for the Badger backend.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "result-cache",
		FailureThreshold: 5,
		Timeout:          30 * time.Second,
	}
}

// BreakerStore wraps a Store with a circuit breaker. While the circuit is
// open every lookup is a miss and every write is dropped, so a failing disk
// degrades to uncached serving instead of adding latency to each request.
type BreakerStore struct {
	next Store
	cb   *gobreaker.CircuitBreaker[*recommend.Response]
	name string
}

// NewBreakerStore wraps next.
func NewBreakerStore(next Store, cfg BreakerConfig) *BreakerStore {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	if cfg.Name == "" {
		cfg.Name = DefaultBreakerConfig().Name
	}

	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[*recommend.Response](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Cache circuit breaker state transition")
			metrics.RecordBreakerTransition(name, from.String(), to.String())
		},
		// A caller giving up is not a backend failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})

	return &BreakerStore{next: next, cb: cb, name: cfg.Name}
}

// Get looks key up through the breaker. An open circuit reports a miss.
func (b *BreakerStore) Get(ctx context.Context, key string) (*recommend.Response, bool, error) {
	resp, err := b.cb.Execute(func() (*recommend.Response, error) {
		resp, ok, err := b.next.Get(ctx, key)
		if err != nil || !ok {
			return nil, err
		}
		return resp, nil
	})
	if err = b.observe(err); err != nil {
		return nil, false, err
	}
	return resp, resp != nil, nil
}

// Set stores resp through the breaker. Writes are dropped while open.
func (b *BreakerStore) Set(ctx context.Context, key string, resp *recommend.Response) error {
	_, err := b.cb.Execute(func() (*recommend.Response, error) {
		return nil, b.next.Set(ctx, key, resp)
	})
	return b.observe(err)
}

// GetBytes looks key up through the breaker when the wrapped store holds
// raw values. It misses otherwise, and while the circuit is open.
func (b *BreakerStore) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	blob, ok := b.next.(Blob)
	if !ok {
		return nil, false, nil
	}
	var data []byte
	var found bool
	_, err := b.cb.Execute(func() (*recommend.Response, error) {
		var err error
		data, found, err = blob.GetBytes(ctx, key)
		return nil, err
	})
	if err = b.observe(err); err != nil {
		return nil, false, err
	}
	return data, found, nil
}

// SetBytes stores data through the breaker. Writes are dropped while open
// or when the wrapped store cannot hold raw values.
func (b *BreakerStore) SetBytes(ctx context.Context, key string, data []byte) error {
	blob, ok := b.next.(Blob)
	if !ok {
		return nil
	}
	_, err := b.cb.Execute(func() (*recommend.Response, error) {
		return nil, blob.SetBytes(ctx, key, data)
	})
	return b.observe(err)
}

// observe records the call and swallows rejections by an open circuit.
func (b *BreakerStore) observe(err error) error {
	switch {
	case err == nil:
		metrics.RecordBreakerRequest(b.name, "success")
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordBreakerRequest(b.name, "rejected")
		return nil
	default:
		metrics.RecordBreakerRequest(b.name, "failure")
		return err
	}
}

// State returns the breaker state: closed, half-open or open.
func (b *BreakerStore) State() string {
	return b.cb.State().String()
}

// Purge forwards to the wrapped store when it supports purging.
func (b *BreakerStore) Purge() error {
	if p, ok := b.next.(Purger); ok {
		return p.Purge()
	}
	return nil
}

// Maintain forwards to the wrapped store when it needs maintenance.
func (b *BreakerStore) Maintain() error {
	if m, ok := b.next.(Maintainer); ok {
		return m.Maintain()
	}
	return nil
}

// Close closes the wrapped store.
func (b *BreakerStore) Close() error {
	return b.next.Close()
}
