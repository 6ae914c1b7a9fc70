// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package config

import (
	"fmt"
	"strings"

	"github.com/tomtom215/folio/internal/cache"
)

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// Validate checks that the configuration is usable and reports the first
// invalid field.
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Training.Interval < 0 {
		return fmt.Errorf("training.interval must not be negative, got %v", c.Training.Interval)
	}
	return c.ToEngineConfig().Validate()
}

// validateDatabase validates DuckDB configuration
func (c *Config) validateDatabase() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("database.threads must not be negative, got %d", c.Database.Threads)
	}
	return nil
}

// validateStorage validates the model store configuration
func (c *Config) validateStorage() error {
	if strings.TrimSpace(c.Storage.ModelDir) == "" {
		return fmt.Errorf("storage.model_dir is required")
	}
	if c.Storage.RetainVersions < 0 {
		return fmt.Errorf("storage.retain_versions must not be negative, got %d", c.Storage.RetainVersions)
	}
	return nil
}

// validateCache validates the result cache configuration
func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case cache.BackendNone, cache.BackendMemory:
	case cache.BackendBadger:
		if strings.TrimSpace(c.Cache.Path) == "" {
			return fmt.Errorf("cache.path is required when cache.backend=badger")
		}
	default:
		return fmt.Errorf("cache.backend must be one of: none, memory, badger")
	}
	if c.Cache.Capacity < 0 {
		return fmt.Errorf("cache.capacity must not be negative, got %d", c.Cache.Capacity)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got %v", c.Cache.TTL)
	}
	return nil
}

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}
	if c.Server.RateLimitRequests < 0 {
		return fmt.Errorf("server.rate_limit_requests must be non-negative")
	}
	if c.Server.RateLimitRequests > 0 && c.Server.RateLimitWindow <= 0 {
		return fmt.Errorf("server.rate_limit_window must be positive when rate limiting is enabled")
	}
	return nil
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
