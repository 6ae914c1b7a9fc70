// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/recommend/catalog"
	"github.com/tomtom215/folio/internal/recommend/engine"
	"github.com/tomtom215/folio/internal/recommend/evaluate"
	"github.com/tomtom215/folio/internal/recommend/intent"
)

// ModelInfo summarizes the serving model.
type ModelInfo struct {
	Version   int       `json:"version"`
	TrainedAt time.Time `json:"trained_at"`

	Items   int           `json:"items"`
	Users   int           `json:"users"`
	Catalog catalog.Stats `json:"catalog"`

	Embedding EmbeddingInfo `json:"embedding"`
	Factors   FactorsInfo   `json:"factors"`

	// Evaluation is absent when the cycle skipped evaluation.
	Evaluation *evaluate.Result `json:"evaluation,omitempty"`

	// Intent is absent when the model has no classifier.
	Intent *IntentInfo `json:"intent,omitempty"`
}

// IntentInfo describes the purchase-intent classifier.
type IntentInfo struct {
	VocabularySize int             `json:"vocabulary_size"`
	Holdout        *intent.Metrics `json:"holdout,omitempty"`
}

// EmbeddingInfo describes the content embedding.
type EmbeddingInfo struct {
	Dim            int `json:"dim"`
	Rank           int `json:"rank"`
	VocabularySize int `json:"vocabulary_size"`
}

// FactorsInfo describes the latent-factor model.
type FactorsInfo struct {
	Status    string  `json:"status"`
	Factors   int     `json:"factors"`
	Epochs    int     `json:"epochs"`
	FinalLoss float64 `json:"final_loss"`

	// TestRMSE is absent when no held-out rating could be scored.
	TestRMSE *float64 `json:"test_rmse,omitempty"`
	HeldOut  int      `json:"held_out"`
}

func newModelInfo(m *engine.Model) ModelInfo {
	info := ModelInfo{
		Version:   m.Version,
		TrainedAt: m.TrainedAt,
		Items:     m.Catalog.Len(),
		Users:     m.Users.Len(),
		Catalog:   m.Catalog.Stats(),
		Embedding: EmbeddingInfo{
			Dim:            m.Space.Dim(),
			Rank:           m.Space.Rank(),
			VocabularySize: m.Space.VocabularySize(),
		},
		Factors: FactorsInfo{
			Status:  m.Factors.Status().String(),
			Factors: m.Factors.Factors(),
			HeldOut: m.HeldOut,
		},
		Evaluation: m.Evaluation,
	}
	if loss := m.Factors.Loss(); len(loss) > 0 {
		info.Factors.Epochs = len(loss)
		info.Factors.FinalLoss = loss[len(loss)-1]
	}
	if m.HeldOut > 0 {
		rmse := m.TestRMSE
		info.Factors.TestRMSE = &rmse
	}
	if m.Intent != nil {
		info.Intent = &IntentInfo{
			VocabularySize: m.Intent.VocabularySize(),
			Holdout:        m.IntentEvaluation,
		}
	}
	return info
}

// GetModel handles GET /api/v1/model.
func (h *Handler) GetModel(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	m := h.rec.Model()
	if m == nil {
		respondEngineError(rw, r, engine.ErrNoModel)
		return
	}
	rw.Success(newModelInfo(m))
}

// RetrainStatus is the reply to an accepted retrain request.
type RetrainStatus struct {
	Status string `json:"status"`

	// ServingVersion is the model serving when the cycle started; zero when
	// none is loaded. The new version replaces it once the cycle completes.
	ServingVersion int `json:"serving_version"`
}

// Retrain handles POST /api/v1/model/retrain. The cycle runs in the
// background on the training service's context, so it outlives the request
// and the server's write timeout; the reply is 202 Accepted.
func (h *Handler) Retrain(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.trainer == nil {
		respondEngineError(rw, r, ErrRetrainDisabled)
		return
	}

	if err := h.trainer.Trigger(); err != nil {
		respondEngineError(rw, r, err)
		return
	}

	status := RetrainStatus{Status: "started"}
	if m := h.rec.Model(); m != nil {
		status.ServingVersion = m.Version
	}
	logging.Ctx(r.Context()).Info().Int("serving_version", status.ServingVersion).Msg("On-demand training cycle started")
	rw.Accepted(status)
}
