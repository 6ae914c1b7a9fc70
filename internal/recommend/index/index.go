// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package index maps external identifiers to dense matrix rows and filters
// interactions down to the rows a factor model can train on.
package index

import (
	"fmt"

	"github.com/tomtom215/folio/internal/recommend"
)

// Index is a bijection between identifiers and the dense range [0, Len()).
// Indices are allocated in insertion order and never reused.
type Index[K ~string] struct {
	toIdx map[K]int
	ids   []K
}

// New returns an empty index with room for n identifiers.
func New[K ~string](n int) *Index[K] {
	return &Index[K]{
		toIdx: make(map[K]int, n),
		ids:   make([]K, 0, n),
	}
}

// FromIDs rebuilds an index whose i-th identifier is ids[i]. A repeated
// identifier means the source was corrupt.
func FromIDs[K ~string](ids []K) (*Index[K], error) {
	x := New[K](len(ids))
	for i, id := range ids {
		if _, dup := x.toIdx[id]; dup {
			return nil, fmt.Errorf("duplicate identifier %q at position %d", string(id), i)
		}
		x.toIdx[id] = i
		x.ids = append(x.ids, id)
	}
	return x, nil
}

// Add returns the index of id, allocating the next one if id is new.
func (x *Index[K]) Add(id K) int {
	if i, ok := x.toIdx[id]; ok {
		return i
	}
	i := len(x.ids)
	x.toIdx[id] = i
	x.ids = append(x.ids, id)
	return i
}

// Lookup returns the index of id.
func (x *Index[K]) Lookup(id K) (int, bool) {
	if x == nil {
		return 0, false
	}
	i, ok := x.toIdx[id]
	return i, ok
}

// Contains reports whether id has an index.
func (x *Index[K]) Contains(id K) bool {
	_, ok := x.Lookup(id)
	return ok
}

// ID returns the identifier at index i. It panics when i is out of range.
func (x *Index[K]) ID(i int) K {
	return x.ids[i]
}

// Len returns the number of allocated indices.
func (x *Index[K]) Len() int {
	if x == nil {
		return 0
	}
	return len(x.ids)
}

// IDs returns a copy of the identifiers in index order.
func (x *Index[K]) IDs() []K {
	out := make([]K, len(x.ids))
	copy(out, x.ids)
	return out
}

// Result is the outcome of indexing an interaction table.
type Result struct {
	Users *Index[recommend.UserID]
	Items *Index[recommend.ItemID]

	// Triples are the retained rows in input order.
	Triples []recommend.Triple

	// MissingUser counts rows dropped for a blank user identifier.
	MissingUser int

	// UnknownItem counts rows dropped because the item is not in the catalog.
	UnknownItem int
}

// Dropped returns the total number of rows that were not retained.
func (r *Result) Dropped() int {
	return r.MissingUser + r.UnknownItem
}

// Build translates interactions into triples against items. A row is kept
// only when its user identifier is non-blank and its item is in items; user
// indices are allocated in first-appearance order over kept rows. Malformed
// rows are counted, never returned as errors.
func Build(interactions []recommend.Interaction, items *Index[recommend.ItemID]) *Result {
	res := &Result{
		Users:   New[recommend.UserID](0),
		Items:   items,
		Triples: make([]recommend.Triple, 0, len(interactions)),
	}
	if res.Items == nil {
		res.Items = New[recommend.ItemID](0)
	}

	for _, in := range interactions {
		if in.UserID == "" {
			res.MissingUser++
			continue
		}
		item, ok := res.Items.Lookup(in.ItemID)
		if !ok {
			res.UnknownItem++
			continue
		}
		res.Triples = append(res.Triples, recommend.Triple{
			User:   res.Users.Add(in.UserID),
			Item:   item,
			Rating: in.Rating,
		})
	}
	return res
}
