// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/metrics"
)

// ImportCatalogCSV replaces the items table with the rows of a CSV file.
// Every column is read as text and cast with TRY_CAST, so malformed numbers
// become NULL instead of failing the import. Columns absent from the file
// are NULL. The item identifier comes from parent_asin or asin; a file with
// neither is rejected.
func (db *DB) ImportCatalogCSV(ctx context.Context, path string) (int64, error) {
	cols, err := db.csvColumns(ctx, path)
	if err != nil {
		return 0, err
	}
	if !cols.has("parent_asin") && !cols.has("asin") {
		return 0, fmt.Errorf("%w: %s needs parent_asin or asin", ErrMissingColumn, path)
	}

	query := fmt.Sprintf(`INSERT INTO items
		SELECT %s, %s, %s, %s, %s, %s, %s,
		       TRY_CAST(%s AS DOUBLE),
		       TRY_CAST(%s AS DOUBLE)
		FROM %s`,
		cols.ref("parent_asin"), cols.ref("asin"), cols.ref("title"),
		cols.ref("features"), cols.ref("description"), cols.ref("categories"),
		cols.ref("bought_together"), cols.ref("average_rating"), cols.ref("rating_number"),
		readCSV(path))

	return db.replaceTable(ctx, TableItems, query)
}

// ImportInteractionsCSV replaces the interactions table with the rows of a
// CSV file. The item is parent_asin, falling back to asin when blank.
// Timestamps may be ISO strings or epoch milliseconds.
func (db *DB) ImportInteractionsCSV(ctx context.Context, path string) (int64, error) {
	cols, err := db.csvColumns(ctx, path)
	if err != nil {
		return 0, err
	}
	if !cols.has("user_id") {
		return 0, fmt.Errorf("%w: %s needs user_id", ErrMissingColumn, path)
	}
	if !cols.has("parent_asin") && !cols.has("asin") {
		return 0, fmt.Errorf("%w: %s needs parent_asin or asin", ErrMissingColumn, path)
	}

	ts := cols.ref("timestamp")
	query := fmt.Sprintf(`INSERT INTO interactions
		SELECT %s,
		       COALESCE(NULLIF(TRIM(%s), ''), %s),
		       TRY_CAST(%s AS DOUBLE),
		       COALESCE(TRY_CAST(%s AS TIMESTAMP), epoch_ms(TRY_CAST(%s AS BIGINT)))
		FROM %s`,
		cols.ref("user_id"),
		cols.ref("parent_asin"), cols.ref("asin"),
		cols.ref("rating"),
		ts, ts,
		readCSV(path))

	return db.replaceTable(ctx, TableInteractions, query)
}

// ImportIntentCSV replaces the labelled review table with the rows of a CSV
// file that has text and bought columns. Labels are trimmed and
// lower-cased; rows whose label is neither positive nor negative, or whose
// text is blank, are skipped.
func (db *DB) ImportIntentCSV(ctx context.Context, path string) (int64, error) {
	cols, err := db.csvColumns(ctx, path)
	if err != nil {
		return 0, err
	}
	if !cols.has("text") || !cols.has("bought") {
		return 0, fmt.Errorf("%w: %s needs text and bought", ErrMissingColumn, path)
	}

	text, label := cols.ref("text"), fmt.Sprintf("LOWER(TRIM(%s))", cols.ref("bought"))
	query := fmt.Sprintf(`INSERT INTO intent_examples
		SELECT %s, %s
		FROM %s
		WHERE %s IN ('positive', 'negative')
		  AND NULLIF(TRIM(%s), '') IS NOT NULL`,
		text, label, readCSV(path), label, text)

	return db.replaceTable(ctx, TableIntent, query)
}

// replaceTable empties table and runs insert in one transaction.
func (db *DB) replaceTable(ctx context.Context, table, insert string) (n int64, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("IMPORT", table, time.Since(start), err)
	}()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return 0, fmt.Errorf("clear %s: %w", table, err)
	}
	res, err := tx.ExecContext(ctx, insert)
	if err != nil {
		return 0, fmt.Errorf("import %s: %w", table, err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}

	n, _ = res.RowsAffected()
	logging.Info().Str("table", table).Int64("rows", n).Dur("duration", time.Since(start)).Msg("CSV imported")
	return n, nil
}

// csvHeader maps lower-cased column names to their spelling in the file.
type csvHeader map[string]string

func (h csvHeader) has(name string) bool {
	_, ok := h[name]
	return ok
}

// ref returns a quoted reference to name, or NULL when the file lacks it.
func (h csvHeader) ref(name string) string {
	col, ok := h[name]
	if !ok {
		return "NULL"
	}
	return `"` + strings.ReplaceAll(col, `"`, `""`) + `"`
}

// csvColumns reads the header of a CSV file through DuckDB's sniffer.
func (db *DB) csvColumns(ctx context.Context, path string) (csvHeader, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT * FROM "+readCSV(path)+" LIMIT 0")
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	defer closeWithLog(rows, "csv header rows")

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	h := make(csvHeader, len(names))
	for _, n := range names {
		h[strings.ToLower(strings.TrimSpace(n))] = n
	}
	return h, rows.Err()
}

// readCSV renders a read_csv_auto call for path. Table functions take no
// bind parameters, so the path is embedded as an escaped literal.
func readCSV(path string) string {
	return fmt.Sprintf("read_csv_auto('%s', header=true, all_varchar=true)", strings.ReplaceAll(path, "'", "''"))
}
