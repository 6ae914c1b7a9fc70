// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/metrics"
)

// Table names.
const (
	TableItems        = "items"
	TableInteractions = "interactions"
	TableIntent       = "intent_examples"
)

// DB wraps the DuckDB connection that holds the catalog and interaction
// tables.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// New opens (or creates) the database at cfg.Path and ensures the schema.
// A Path of ":memory:" keeps everything in process.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	if cfg.Path != ":memory:" {
		dbDir := filepath.Dir(cfg.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	}

	// Auto-install is disabled so a restricted network cannot hang startup;
	// read_csv_auto is built in.
	connStr := fmt.Sprintf("%s?threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, numThreads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, cfg: cfg}
	db.configureConnectionPool()

	if err := db.initialize(context.Background()); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Int("threads", numThreads).
		Str("max_memory", cfg.MaxMemory).
		Msg("Database opened")
	return db, nil
}

// configureConnectionPool sizes the pool. An in-memory database is private
// to its connection, so it is pinned to exactly one.
func (db *DB) configureConnectionPool() {
	if db.cfg.Path == ":memory:" {
		db.conn.SetMaxOpenConns(1)
		db.conn.SetMaxIdleConns(1)
		db.conn.SetConnMaxLifetime(0)
		return
	}
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// initialize creates the tables. Columns follow the Amazon Reviews 2023
// layout the importers expect.
func (db *DB) initialize(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS items (
			parent_asin     VARCHAR,
			asin            VARCHAR,
			title           VARCHAR,
			features        VARCHAR,
			description     VARCHAR,
			categories      VARCHAR,
			bought_together VARCHAR,
			average_rating  DOUBLE,
			rating_number   DOUBLE
		)`,
		`CREATE TABLE IF NOT EXISTS interactions (
			user_id     VARCHAR,
			parent_asin VARCHAR,
			rating      DOUBLE,
			ts          TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS intent_examples (
			review_text VARCHAR,
			label       VARCHAR
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// Ping verifies the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Conn returns the underlying connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Close closes the connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// TableCounts returns the number of rows in each table.
func (db *DB) TableCounts(ctx context.Context) (items, interactions int, err error) {
	start := time.Now()
	err = db.conn.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM items), (SELECT COUNT(*) FROM interactions)`,
	).Scan(&items, &interactions)
	metrics.RecordDBQuery("COUNT", "all", time.Since(start), err)
	if err != nil {
		return 0, 0, fmt.Errorf("count rows: %w", err)
	}
	return items, interactions, nil
}

// IntentCount returns the number of labelled reviews.
func (db *DB) IntentCount(ctx context.Context) (n int, err error) {
	start := time.Now()
	err = db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM intent_examples`).Scan(&n)
	metrics.RecordDBQuery("COUNT", TableIntent, time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("count labelled reviews: %w", err)
	}
	return n, nil
}
