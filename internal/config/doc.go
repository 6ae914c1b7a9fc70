// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

/*
Package config provides centralized configuration management for Folio.

# Configuration Sources

Sources are layered with Koanf v2, later layers overriding earlier ones:
  - Built-in defaults (the engine defaults plus deployment paths)
  - A YAML file: CONFIG_PATH, else the first of folio.yaml, folio.yml,
    /etc/folio/config.yaml, /etc/folio/config.yml
  - Environment variables

# Environment Variables

Any setting can be overridden with FOLIO_ followed by its path, sections
separated by a double underscore:
  - FOLIO_SERVER__PORT=9000
  - FOLIO_MODEL__FACTORS__EPOCHS=60
  - FOLIO_SPLIT__STRATEGY=temporal
  - FOLIO_CACHE__BACKEND=badger

Short names are kept for the common settings:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER
  - HTTP_PORT, HTTP_HOST
  - DUCKDB_PATH, DUCKDB_MAX_MEMORY
  - MODEL_DIR

# Example YAML

	database:
	  path: /data/folio.duckdb
	model:
	  seed: 7
	  embedding:
	    dim: 64
	split:
	  strategy: temporal
	  test_fraction: 0.2
	cache:
	  backend: badger
	  path: /data/cache
	  ttl: 10m

# Usage

	cfg, err := config.LoadWithKoanf()
	if err != nil {
	    return err
	}
	logging.Init(cfg.ToLoggingConfig())
	p, err := engine.NewPipeline(cfg.ToEngineConfig(), db, store, logger)

Validation reports the first invalid field, including every engine
constraint checked by recommend.Config.Validate.
*/
package config
