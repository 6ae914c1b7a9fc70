// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/folio/internal/metrics"
	"github.com/tomtom215/folio/internal/recommend"
	"github.com/tomtom215/folio/internal/recommend/intent"
)

// LoadCatalog returns every item row in import order. NULL text becomes ""
// and NULL numbers become 0; identifier selection is left to the catalog
// normalizer.
func (db *DB) LoadCatalog(ctx context.Context) (items []recommend.RawItem, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("SELECT", TableItems, time.Since(start), err)
	}()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT COALESCE(parent_asin, ''),
		       COALESCE(asin, ''),
		       COALESCE(title, ''),
		       COALESCE(features, ''),
		       COALESCE(description, ''),
		       COALESCE(categories, ''),
		       COALESCE(bought_together, ''),
		       COALESCE(average_rating, 0),
		       COALESCE(rating_number, 0)
		FROM items
		ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer closeWithLog(rows, "item rows")

	for rows.Next() {
		var it recommend.RawItem
		if err = rows.Scan(&it.ID, &it.ASIN, &it.Title, &it.Features, &it.Description,
			&it.Categories, &it.BoughtTogether, &it.AverageRating, &it.RatingCount); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}

	metrics.DBRowsLoaded.WithLabelValues(TableItems).Add(float64(len(items)))
	return items, nil
}

// LoadInteractions returns every interaction in import order. A NULL rating
// becomes 0 and a NULL timestamp the zero time.
func (db *DB) LoadInteractions(ctx context.Context) (out []recommend.Interaction, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("SELECT", TableInteractions, time.Since(start), err)
	}()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT TRIM(COALESCE(user_id, '')),
		       TRIM(COALESCE(parent_asin, '')),
		       COALESCE(rating, 0),
		       ts
		FROM interactions
		ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	defer closeWithLog(rows, "interaction rows")

	for rows.Next() {
		var (
			user, item string
			in         recommend.Interaction
			ts         sql.NullTime
		)
		if err = rows.Scan(&user, &item, &in.Rating, &ts); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		in.UserID = recommend.UserID(user)
		in.ItemID = recommend.ItemID(item)
		if ts.Valid {
			in.Timestamp = ts.Time.UTC()
		}
		out = append(out, in)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interactions: %w", err)
	}

	metrics.DBRowsLoaded.WithLabelValues(TableInteractions).Add(float64(len(out)))
	return out, nil
}

// LoadIntentExamples returns every labelled review in import order. It
// makes DB an intent source for the training pipeline.
func (db *DB) LoadIntentExamples(ctx context.Context) (out []intent.Example, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("SELECT", TableIntent, time.Since(start), err)
	}()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT COALESCE(review_text, ''), COALESCE(label, '')
		FROM intent_examples
		ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query labelled reviews: %w", err)
	}
	defer closeWithLog(rows, "labelled review rows")

	for rows.Next() {
		var text, label string
		if err = rows.Scan(&text, &label); err != nil {
			return nil, fmt.Errorf("scan labelled review: %w", err)
		}
		l, perr := intent.ParseLabel(label)
		if perr != nil {
			return nil, fmt.Errorf("labelled review %d: %w", len(out)+1, perr)
		}
		out = append(out, intent.Example{Text: text, Label: l})
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate labelled reviews: %w", err)
	}

	metrics.DBRowsLoaded.WithLabelValues(TableIntent).Add(float64(len(out)))
	return out, nil
}
