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

// GetRecommendations handles GET /api/v1/recommendations.
//
// Query parameters:
//   - seed: item id or title, repeatable
//   - user_id: optional user identifier
//   - k: list length (0 or absent selects the default)
//   - exclude: item ids to leave out, repeatable or comma-separated
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	req, err := parseRecommendQuery(r.URL.Query())
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	h.recommend(rw, r, &req)
}

// PostRecommendations handles POST /api/v1/recommendations with a JSON body
// of the same shape as RecommendRequest.
func (h *Handler) PostRecommendations(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	req, err := decodeRecommendBody(w, r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	h.recommend(rw, r, &req)
}

func (h *Handler) recommend(rw *ResponseWriter, r *http.Request, req *RecommendRequest) {
	if verr := validation.ValidateStruct(req); verr != nil {
		rw.ValidationError("Invalid recommendation request", verr.Details())
		return
	}

	ctx := r.Context()
	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}

	resp, err := h.rec.Recommend(ctx, req.toEngine())
	if err != nil {
		respondEngineError(rw, r, err)
		return
	}

	logging.Ctx(r.Context()).Debug().
		Str("strategy", resp.Strategy.String()).
		Int("items", len(resp.Items)).
		Int("unresolved", len(resp.Unresolved)).
		Bool("cache_hit", resp.CacheHit).
		Msg("Recommendations served")
	rw.Success(resp)
}
