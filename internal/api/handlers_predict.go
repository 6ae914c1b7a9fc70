// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"context"
	"net/http"

	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/validation"
)

// Predict handles POST /api/v1/predict.
//
// The body carries the review text and, optionally, the known outcome in
// "bought". Responses repeat the text hash so clients can correlate with
// the prediction log.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req PredictRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError("Invalid prediction request", verr.Details())
		return
	}
	actual, err := req.actual()
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	ctx := r.Context()
	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}

	res, err := h.rec.Predict(ctx, req.Text, actual)
	if err != nil {
		respondEngineError(rw, r, err)
		return
	}

	logging.Ctx(r.Context()).Debug().
		Str("predicted", res.Label.String()).
		Bool("cache_hit", res.Cached).
		Msg("Prediction served")
	rw.Success(res)
}

// GetPredictStats handles GET /api/v1/predict/stats.
func (h *Handler) GetPredictStats(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	stats, err := h.rec.IntentStats()
	if err != nil {
		respondEngineError(rw, r, err)
		return
	}
	rw.Success(stats)
}
