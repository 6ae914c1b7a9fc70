// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package engine

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/metrics"
	"github.com/tomtom215/folio/internal/recommend/intent"
)

// ErrNoClassifier is returned by Predict when the serving model was trained
// without labelled reviews.
var ErrNoClassifier = errors.New("serving model has no intent classifier")

// PredictionCache stores predictions by model version and text hash.
// Cache failures never fail a request.
type PredictionCache interface {
	Get(ctx context.Context, key string) (*intent.Prediction, bool, error)
	Set(ctx context.Context, key string, p *intent.Prediction) error
}

// PredictionRecorder receives every served prediction.
type PredictionRecorder interface {
	Record(e intent.LogEntry) error
}

// WithPredictionCache enables the prediction cache.
func WithPredictionCache(c PredictionCache) Option {
	return func(r *Recommender) { r.predictions = c }
}

// WithPredictionLog records every prediction to l.
func WithPredictionLog(l PredictionRecorder) Option {
	return func(r *Recommender) { r.predictionLog = l }
}

// IntentResult is a served prediction.
type IntentResult struct {
	intent.Prediction

	TextHash     string `json:"text_hash"`
	Cached       bool   `json:"cached"`
	ModelVersion int    `json:"model_version"`
}

// Predict classifies the purchase intent of review text. actual is the
// caller's known outcome, or nil; it feeds the live scores and the log but
// never changes the prediction.
func (r *Recommender) Predict(ctx context.Context, text string, actual *intent.Label) (*IntentResult, error) {
	m := r.model.Load()
	if m == nil {
		return nil, ErrNoModel
	}
	if m.Intent == nil {
		return nil, ErrNoClassifier
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &IntentResult{TextHash: intent.TextHash(text), ModelVersion: m.Version}
	logCtx := r.logger.With().
		Int("model_version", m.Version).
		Str("text_hash", res.TextHash)
	if id := logging.RequestIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("request_id", id)
	}
	logger := logCtx.Logger()

	key := strconv.Itoa(m.Version) + ":" + res.TextHash
	if p := r.cachedPrediction(ctx, key, logger); p != nil {
		res.Prediction = *p
		res.Cached = true
	} else {
		res.Prediction = m.Intent.Predict(text)
		if r.predictions != nil {
			if err := r.predictions.Set(ctx, key, &res.Prediction); err != nil {
				logger.Warn().Err(err).Msg("prediction cache write failed")
			}
		}
	}

	actualName := ""
	if actual != nil {
		actualName = actual.String()
	}
	metrics.RecordIntentPrediction(res.Label.String(), actualName, res.Cached)
	r.monitor.Observe(res.Label, actual)
	if actual != nil {
		live := r.monitor.Snapshot().Labelled
		metrics.RecordIntentScores("live", live.Accuracy, live.Precision, live.Recall)
	}

	if r.predictionLog != nil {
		err := r.predictionLog.Record(intent.LogEntry{
			Timestamp:    time.Now().UTC(),
			RequestText:  text,
			TextHash:     res.TextHash,
			Predicted:    res.Label,
			Confidence:   res.Confidence,
			TrueRecord:   actual,
			ModelVersion: m.Version,
			Cached:       res.Cached,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("prediction log write failed")
		}
	}

	logger.Debug().
		Str("predicted", res.Label.String()).
		Float64("confidence", res.Confidence).
		Bool("cached", res.Cached).
		Msg("intent prediction complete")
	return res, nil
}

func (r *Recommender) cachedPrediction(ctx context.Context, key string, logger zerolog.Logger) *intent.Prediction {
	if r.predictions == nil {
		return nil
	}
	p, ok, err := r.predictions.Get(ctx, key)
	if err != nil {
		logger.Warn().Err(err).Msg("prediction cache read failed")
		return nil
	}
	if !ok {
		return nil
	}
	return p
}

// IntentStats reports classifier quality: the holdout scores of the serving
// model and the live scores since the process started.
type IntentStats struct {
	ModelVersion int `json:"model_version"`
	Vocabulary   int `json:"vocabulary"`

	// Holdout is nil when the cycle trained on every labelled review.
	Holdout *intent.Metrics        `json:"holdout,omitempty"`
	Live    intent.MonitorSnapshot `json:"live"`
}

// IntentStats returns the current classifier scores.
func (r *Recommender) IntentStats() (*IntentStats, error) {
	m := r.model.Load()
	if m == nil {
		return nil, ErrNoModel
	}
	if m.Intent == nil {
		return nil, ErrNoClassifier
	}
	return &IntentStats{
		ModelVersion: m.Version,
		Vocabulary:   m.Intent.VocabularySize(),
		Holdout:      m.IntentEvaluation,
		Live:         r.monitor.Snapshot(),
	}, nil
}
