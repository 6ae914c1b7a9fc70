// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package recommend

import (
	"fmt"
	"time"
)

// ItemID is the external identifier of a catalog item.
type ItemID string

// UserID is the external identifier of a user.
type UserID string

// RawItem is a catalog row as delivered by a table source. Every field may be
// empty; normalization decides the defaults.
type RawItem struct {
	// ID is the parent identifier. When blank, ASIN is used instead.
	ID             string
	ASIN           string
	Title          string
	Features       string
	Description    string
	Categories     string
	BoughtTogether string
	AverageRating  float64
	RatingCount    float64
}

// Item is a normalized catalog item. Items are immutable once a catalog is built.
type Item struct {
	ID    ItemID `json:"id"`
	Title string `json:"title"`

	// Text is the blob fed to the embedding builder.
	Text string `json:"-"`

	Categories    []string `json:"categories,omitempty"`
	Bundled       []ItemID `json:"bundled,omitempty"`
	AverageRating float64  `json:"average_rating"`
	RatingCount   float64  `json:"rating_count"`

	// Popularity is log(1 + RatingCount); never negative.
	Popularity float64 `json:"popularity"`
}

// Interaction is one explicit rating event.
type Interaction struct {
	UserID    UserID    `json:"user_id"`
	ItemID    ItemID    `json:"item_id"`
	Rating    float64   `json:"rating"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Triple is an interaction translated to dense indices.
type Triple struct {
	User   int
	Item   int
	Rating float64
}

// Strategy identifies how a recommendation list was scored.
type Strategy int

const (
	// StrategyNone means nothing could be scored: no resolvable seed and no known user.
	StrategyNone Strategy = iota
	// StrategyContent scores by cosine similarity to the averaged seed embedding.
	StrategyContent
	// StrategyLatentFactor scores by the user's factor vector against every item.
	StrategyLatentFactor
)

// String returns the metric and log label for the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyContent:
		return "content"
	case StrategyLatentFactor:
		return "latent_factor"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler so strategies render as labels in JSON.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a label written by MarshalText.
func (s *Strategy) UnmarshalText(text []byte) error {
	switch string(text) {
	case "none":
		*s = StrategyNone
	case "content":
		*s = StrategyContent
	case "latent_factor":
		*s = StrategyLatentFactor
	default:
		return fmt.Errorf("unknown strategy %q", text)
	}
	return nil
}

// Request asks for a top-K list.
type Request struct {
	// Seeds are item identifiers or free-text titles.
	Seeds []string `json:"seeds,omitempty"`

	// UserID is optional; empty means anonymous.
	UserID UserID `json:"user_id,omitempty"`

	// K is the list length. Zero selects the configured default.
	K int `json:"k,omitempty"`

	// Exclude lists items that must not be returned, in addition to the seeds.
	Exclude []ItemID `json:"exclude,omitempty"`
}

// ScoredItem is one entry of a recommendation list.
type ScoredItem struct {
	ID            ItemID   `json:"id"`
	Title         string   `json:"title"`
	Categories    []string `json:"categories,omitempty"`
	AverageRating float64  `json:"average_rating"`
	RatingCount   float64  `json:"rating_count"`
	Popularity    float64  `json:"popularity"`
	Score         float64  `json:"score"`
}

// Response is the ranked result of a Request.
type Response struct {
	Items    []ScoredItem `json:"items"`
	Strategy Strategy     `json:"strategy"`

	// Seeds are the catalog items the request's seeds resolved to, in request order.
	Seeds []ItemID `json:"seeds,omitempty"`

	// Unresolved are the seeds that matched nothing in the catalog.
	Unresolved []string `json:"unresolved,omitempty"`

	K            int  `json:"k"`
	ModelVersion int  `json:"model_version"`
	CacheHit     bool `json:"cache_hit"`
}

// ItemIDs returns the identifiers of the recommended items in rank order.
func (r *Response) ItemIDs() []ItemID {
	if r == nil {
		return nil
	}
	ids := make([]ItemID, len(r.Items))
	for i := range r.Items {
		ids[i] = r.Items[i].ID
	}
	return ids
}
