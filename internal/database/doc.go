// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package database is the DuckDB table source for training cycles.
//
// # Tables
//
//   - items: one row per catalog entry, in import order (parent_asin, asin,
//     title, features, description, categories, bought_together,
//     average_rating, rating_number)
//   - interactions: one row per rating (user_id, parent_asin, rating, ts)
//
// # Import
//
// CSV files are parsed by DuckDB itself through read_csv_auto with every
// column read as text. Numeric and timestamp columns pass through TRY_CAST,
// so a malformed value becomes NULL rather than aborting the import, and
// columns missing from a file are filled with NULL. An import replaces the
// whole table inside one transaction.
//
// # Load
//
// LoadCatalog and LoadInteractions read full tables in import order and map
// NULLs to zero values. Together they satisfy the training pipeline's data
// source:
//
//	db, err := database.New(&cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if _, err := db.ImportCatalogCSV(ctx, "data/meta.csv"); err != nil {
//	    return err
//	}
//	p, err := engine.NewPipeline(cfg.ToEngineConfig(), db, store, logger)
//
// Every query is timed into the duckdb_* Prometheus metrics.
package database
