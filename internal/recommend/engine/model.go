// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package engine

import (
	"fmt"
	"time"

	"github.com/tomtom215/folio/internal/recommend"
	"github.com/tomtom215/folio/internal/recommend/catalog"
	"github.com/tomtom215/folio/internal/recommend/embedding"
	"github.com/tomtom215/folio/internal/recommend/evaluate"
	"github.com/tomtom215/folio/internal/recommend/factors"
	"github.com/tomtom215/folio/internal/recommend/index"
	"github.com/tomtom215/folio/internal/recommend/intent"
	"github.com/tomtom215/folio/internal/recommend/storage"
)

// Model is one trained, immutable generation of everything the recommender
// reads. Item rows of Space and Factors follow catalog order; user rows of
// Factors follow Users.
type Model struct {
	Version   int
	TrainedAt time.Time

	Catalog *catalog.Catalog
	Space   *embedding.Space
	Users   *index.Index[recommend.UserID]
	Factors *factors.Model

	// TestRMSE is the rating error of Factors on held-out interactions.
	// HeldOut counts the ratings it was measured on and is zero when the
	// factors are untrained or no test rating had a known user and item.
	TestRMSE float64
	HeldOut  int

	// Evaluation is nil when the cycle skipped evaluation.
	Evaluation *evaluate.Result

	// Intent is nil when no labelled reviews were available.
	// IntentEvaluation is nil when nothing was held out.
	Intent           *intent.Classifier
	IntentEvaluation *intent.Metrics
}

// Validate checks that every matrix agrees with the indices addressing it.
func (m *Model) Validate() error {
	switch {
	case m.Catalog == nil || m.Space == nil || m.Users == nil || m.Factors == nil:
		return fmt.Errorf("model v%d is incomplete", m.Version)
	case m.Space.Len() != m.Catalog.Len():
		return fmt.Errorf("model v%d: %d item vectors for %d catalog items", m.Version, m.Space.Len(), m.Catalog.Len())
	case m.Factors.Items() != m.Catalog.Len():
		return fmt.Errorf("model v%d: %d item factors for %d catalog items", m.Version, m.Factors.Items(), m.Catalog.Len())
	case m.Factors.Users() != m.Users.Len():
		return fmt.Errorf("model v%d: %d user factors for %d indexed users", m.Version, m.Factors.Users(), m.Users.Len())
	}
	return nil
}

// Bundle converts the model into its persisted form.
func (m *Model) Bundle() *storage.Bundle {
	b := &storage.Bundle{
		Items:     m.Catalog.Items(),
		UserIDs:   m.Users.IDs(),
		Embedding: m.Space.State(),
		Factors:   m.Factors.State(),
	}
	if m.Intent != nil {
		b.Intent = m.Intent.State()
	}
	return b
}

// Metadata describes the model for the store and the API.
func (m *Model) Metadata(interactions int, duration time.Duration) storage.Metadata {
	meta := storage.Metadata{
		TrainedAt:          m.TrainedAt,
		InteractionCount:   interactions,
		ItemCount:          m.Catalog.Len(),
		UserCount:          m.Users.Len(),
		TrainingDurationMS: duration.Milliseconds(),
		FactorStatus:       m.Factors.Status().String(),
		TestRMSE:           m.TestRMSE,
		HeldOut:            m.HeldOut,
	}
	if ev := m.Evaluation; ev != nil {
		meta.Recall = ev.Recall
		meta.Precision = ev.Precision
		meta.NDCG = ev.NDCG
		meta.Eligible = ev.Eligible
	}
	if ev := m.IntentEvaluation; ev != nil {
		meta.IntentAccuracy = ev.Accuracy
		meta.IntentPrecision = ev.Precision
		meta.IntentRecall = ev.Recall
		meta.IntentExamples = ev.Examples
	}
	return meta
}

// ModelFromBundle rebuilds a model persisted by Bundle.
func ModelFromBundle(b *storage.Bundle, meta *storage.Metadata) (*Model, error) {
	cat, err := catalog.FromItems(b.Items)
	if err != nil {
		return nil, fmt.Errorf("restore catalog: %w", err)
	}
	space, err := embedding.FromState(b.Embedding)
	if err != nil {
		return nil, fmt.Errorf("restore embedding: %w", err)
	}
	users, err := index.FromIDs(b.UserIDs)
	if err != nil {
		return nil, fmt.Errorf("restore user index: %w", err)
	}
	fm, err := factors.FromState(b.Factors)
	if err != nil {
		return nil, fmt.Errorf("restore factors: %w", err)
	}

	m := &Model{
		Version:   meta.Version,
		TrainedAt: meta.TrainedAt,
		Catalog:   cat,
		Space:     space,
		Users:     users,
		Factors:   fm,
		TestRMSE:  meta.TestRMSE,
		HeldOut:   meta.HeldOut,
	}
	if meta.Eligible > 0 {
		m.Evaluation = &evaluate.Result{
			Recall:    meta.Recall,
			Precision: meta.Precision,
			NDCG:      meta.NDCG,
			Eligible:  meta.Eligible,
		}
	}
	if b.Intent != nil {
		if m.Intent, err = intent.FromState(b.Intent); err != nil {
			return nil, fmt.Errorf("restore intent classifier: %w", err)
		}
	}
	if meta.IntentExamples > 0 {
		m.IntentEvaluation = &intent.Metrics{
			Examples:  meta.IntentExamples,
			Accuracy:  meta.IntentAccuracy,
			Precision: meta.IntentPrecision,
			Recall:    meta.IntentRecall,
		}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
