// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package catalog

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/tomtom215/folio/internal/recommend"
)

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// minTokenRunes is the shortest query token tried by the last resolution tier.
const minTokenRunes = 3

// Resolve maps a seed to an item. An exact identifier wins; otherwise the
// seed is treated as a title.
func (c *Catalog) Resolve(seed string) (recommend.ItemID, bool) {
	if id := recommend.ItemID(strings.TrimSpace(seed)); id != "" && c.Contains(id) {
		return id, true
	}
	return c.ResolveTitle(seed)
}

// ResolveTitle finds the item a free-text title most plausibly names. Tiers
// are tried in order and the first catalog item matching a tier wins:
//
//  1. the lower-cased title equals the trimmed, lower-cased query
//  2. the lower-cased title contains the query
//  3. for each query token of three or more characters, in query order,
//     the lower-cased title contains the token
//
// Blank queries and queries matching nothing return false.
func (c *Catalog) ResolveTitle(query string) (recommend.ItemID, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return "", false
	}

	for i, title := range c.lowerTitles {
		if title == q {
			return c.items[i].ID, true
		}
	}
	for i, title := range c.lowerTitles {
		if strings.Contains(title, q) {
			return c.items[i].ID, true
		}
	}
	for _, token := range nonWord.Split(q, -1) {
		if utf8.RuneCountInString(token) < minTokenRunes {
			continue
		}
		for i, title := range c.lowerTitles {
			if strings.Contains(title, token) {
				return c.items[i].ID, true
			}
		}
	}
	return "", false
}
