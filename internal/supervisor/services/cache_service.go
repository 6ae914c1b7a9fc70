// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Maintainer performs periodic housekeeping on a cache backend: value-log
// GC for Badger, an expiry sweep for the LRU.
type Maintainer interface {
	Maintain() error
}

// CacheMaintenanceService calls Maintain on a fixed interval. Failures are
// logged and retried on the next tick.
type CacheMaintenanceService struct {
	cache    Maintainer
	interval time.Duration
	logger   zerolog.Logger
	name     string
}

// NewCacheMaintenanceService creates the service. A non-positive interval
// selects 5 minutes.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewCacheMaintenanceService(cache Maintainer, interval time.Duration, logger zerolog.Logger) *CacheMaintenanceService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &CacheMaintenanceService{
		cache:    cache,
		interval: interval,
		logger:   logger.With().Str("service", "cache-maintenance").Logger(),
		name:     "cache-maintenance",
	}
}

// Serve implements suture.Service.
func (s *CacheMaintenanceService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := s.cache.Maintain(); err != nil {
				s.logger.Warn().Err(err).Msg("cache maintenance failed")
				continue
			}
			s.logger.Debug().Dur("duration", time.Since(start)).Msg("cache maintenance complete")
		}
	}
}

// String names the service in supervisor logs.
func (s *CacheMaintenanceService) String() string {
	return s.name
}
