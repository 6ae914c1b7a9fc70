// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"context"
	"time"

	"github.com/tomtom215/folio/internal/recommend"
	"github.com/tomtom215/folio/internal/recommend/engine"
	"github.com/tomtom215/folio/internal/recommend/intent"
)

// Recommender is the part of engine.Recommender the handlers use.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (*recommend.Response, error)
	Model() *engine.Model
	Predict(ctx context.Context, text string, actual *intent.Label) (*engine.IntentResult, error)
	IntentStats() (*engine.IntentStats, error)
}

// Trainer starts a training cycle in the background. The cycle installs its
// own result; callers watch GET /api/v1/model for the new version.
type Trainer interface {
	Trigger() error
}

// Handler serves the API endpoints.
type Handler struct {
	rec            Recommender
	trainer        Trainer
	requestTimeout time.Duration
	startTime      time.Time
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithTrainer enables POST /api/v1/model/retrain.
func WithTrainer(t Trainer) HandlerOption {
	return func(h *Handler) { h.trainer = t }
}

// WithRequestTimeout bounds each recommendation call. Zero means no bound
// beyond the server's own timeouts.
func WithRequestTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) { h.requestTimeout = d }
}

// NewHandler creates the API handler set.
func NewHandler(rec Recommender, opts ...HandlerOption) *Handler {
	h := &Handler{rec: rec, startTime: time.Now()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}
