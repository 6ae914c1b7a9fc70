// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package catalog turns raw catalog rows into immutable items and resolves
// the free-text titles users type into catalog identifiers.
package catalog

import (
	"math"
	"regexp"
	"strings"

	"github.com/tomtom215/folio/internal/recommend"
	"github.com/tomtom215/folio/internal/recommend/index"
)

var (
	bundlePattern       = regexp.MustCompile(`[A-Z0-9]{4,}`)
	categorySeparators  = regexp.MustCompile(`[>|,/;]+`)
	categoryPunctuation = " \t\r\n[]'\""
)

// Stats counts what normalization had to repair or discard.
type Stats struct {
	Rows       int `json:"rows"`
	MissingID  int `json:"missing_id"`
	Duplicates int `json:"duplicates"`

	// PopularityFromInteractions is set when the rating-count column was
	// empty for the whole catalog and interaction counts were used instead.
	PopularityFromInteractions bool `json:"popularity_from_interactions"`
}

// Catalog is a normalized, ordered set of items. It is safe for concurrent reads.
type Catalog struct {
	items       []recommend.Item
	ids         *index.Index[recommend.ItemID]
	lowerTitles []string
	stats       Stats
}

// Normalize builds a catalog from raw rows. Interactions are only consulted
// for the popularity fallback. Data problems are repaired and counted in
// Stats; Normalize never fails.
func Normalize(raw []recommend.RawItem, interactions []recommend.Interaction) *Catalog {
	c := &Catalog{
		items: make([]recommend.Item, 0, len(raw)),
		ids:   index.New[recommend.ItemID](len(raw)),
		stats: Stats{Rows: len(raw)},
	}

	ratingTotal := 0.0
	for i := range raw {
		r := &raw[i]
		id := strings.TrimSpace(r.ID)
		if id == "" {
			id = strings.TrimSpace(r.ASIN)
		}
		if id == "" {
			c.stats.MissingID++
			continue
		}
		if c.ids.Contains(recommend.ItemID(id)) {
			c.stats.Duplicates++
			continue
		}
		c.ids.Add(recommend.ItemID(id))

		count := sanitize(r.RatingCount)
		ratingTotal += count
		c.items = append(c.items, recommend.Item{
			ID:            recommend.ItemID(id),
			Title:         r.Title,
			Text:          textBlob(r.Title, r.Features, r.Description, r.Categories),
			Categories:    SplitCategories(r.Categories),
			Bundled:       ParseBundled(r.BoughtTogether),
			AverageRating: sanitize(r.AverageRating),
			RatingCount:   count,
		})
	}

	if ratingTotal == 0 && len(interactions) > 0 {
		counts := make(map[recommend.ItemID]int, len(c.items))
		for _, in := range interactions {
			counts[in.ItemID]++
		}
		for i := range c.items {
			c.items[i].RatingCount = float64(counts[c.items[i].ID])
		}
		c.stats.PopularityFromInteractions = true
	}

	c.lowerTitles = make([]string, len(c.items))
	for i := range c.items {
		c.items[i].Popularity = math.Log1p(c.items[i].RatingCount)
		c.lowerTitles[i] = strings.ToLower(c.items[i].Title)
	}
	return c
}

// FromItems rebuilds a catalog from already normalized items, as loaded from
// a persisted model. Duplicate identifiers are an error.
func FromItems(items []recommend.Item) (*Catalog, error) {
	ids := make([]recommend.ItemID, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	idx, err := index.FromIDs(ids)
	if err != nil {
		return nil, err
	}
	c := &Catalog{
		items:       items,
		ids:         idx,
		lowerTitles: make([]string, len(items)),
		stats:       Stats{Rows: len(items)},
	}
	for i := range items {
		c.lowerTitles[i] = strings.ToLower(items[i].Title)
	}
	return c, nil
}

// sanitize maps NaN, infinities and negatives to zero.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func textBlob(fields ...string) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, " ")
}

// SplitCategories splits a raw category path on runs of > | , / ; and returns
// the lower-cased, trimmed, non-empty parts.
func SplitCategories(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range categorySeparators.Split(raw, -1) {
		part = strings.ToLower(strings.Trim(part, categoryPunctuation))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseBundled extracts item identifiers from a free-form "bought together" field.
func ParseBundled(raw string) []recommend.ItemID {
	matches := bundlePattern.FindAllString(raw, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]recommend.ItemID, len(matches))
	for i, m := range matches {
		out[i] = recommend.ItemID(m)
	}
	return out
}

// Len returns the number of items.
func (c *Catalog) Len() int { return len(c.items) }

// Items returns the items in catalog order. Callers must not modify them.
func (c *Catalog) Items() []recommend.Item { return c.items }

// Item returns the item at catalog position i.
func (c *Catalog) Item(i int) *recommend.Item { return &c.items[i] }

// Lookup returns the item with the given identifier.
func (c *Catalog) Lookup(id recommend.ItemID) (*recommend.Item, bool) {
	i, ok := c.ids.Lookup(id)
	if !ok {
		return nil, false
	}
	return &c.items[i], true
}

// IndexOf returns the catalog position of id.
func (c *Catalog) IndexOf(id recommend.ItemID) (int, bool) {
	return c.ids.Lookup(id)
}

// Contains reports whether id is in the catalog.
func (c *Catalog) Contains(id recommend.ItemID) bool {
	return c.ids.Contains(id)
}

// ItemIndex returns the identifier index in catalog order. It is shared, not copied.
func (c *Catalog) ItemIndex() *index.Index[recommend.ItemID] { return c.ids }

// Texts returns the text blob of every item in catalog order.
func (c *Catalog) Texts() []string {
	texts := make([]string, len(c.items))
	for i := range c.items {
		texts[i] = c.items[i].Text
	}
	return texts
}

// Stats returns the normalization counters.
func (c *Catalog) Stats() Stats { return c.stats }
