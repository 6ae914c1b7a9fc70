// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/folio/internal/recommend"
	"github.com/tomtom215/folio/internal/recommend/intent"
)

// maxRequestBody caps POST bodies.
const maxRequestBody = 1 << 20

// RecommendRequest is the wire form of a recommendation request, shared by
// the query-string and JSON variants.
type RecommendRequest struct {
	// Seeds are item ids or titles
	Seeds []string `json:"seeds" validate:"max=50,dive,identifier"`

	UserID string `json:"user_id" validate:"omitempty,identifier"`

	// K is the list length; 0 selects the server default and values above
	// the server maximum are clamped.
	K int `json:"k" validate:"gte=0,lte=1000"`

	Exclude []string `json:"exclude" validate:"max=1000,dive,identifier"`
}

// toEngine converts the validated request into the recommender's type.
func (req *RecommendRequest) toEngine() recommend.Request {
	out := recommend.Request{
		Seeds:  req.Seeds,
		UserID: recommend.UserID(strings.TrimSpace(req.UserID)),
		K:      req.K,
	}
	if len(req.Exclude) > 0 {
		out.Exclude = make([]recommend.ItemID, len(req.Exclude))
		for i, id := range req.Exclude {
			out.Exclude[i] = recommend.ItemID(strings.TrimSpace(id))
		}
	}
	return out
}

// parseRecommendQuery reads a RecommendRequest from the query string.
// Repeated parameters accumulate: ?seed=a&seed=b. A comma-separated
// exclude list is also accepted; seeds are never split because titles may
// contain commas.
func parseRecommendQuery(q url.Values) (RecommendRequest, error) {
	req := RecommendRequest{
		Seeds:  q["seed"],
		UserID: q.Get("user_id"),
	}
	for _, v := range q["exclude"] {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				req.Exclude = append(req.Exclude, id)
			}
		}
	}
	if raw := q.Get("k"); raw != "" {
		k, err := strconv.Atoi(raw)
		if err != nil {
			return req, fmt.Errorf("k must be an integer, got %q", raw)
		}
		req.K = k
	}
	return req, nil
}

// decodeRecommendBody reads a RecommendRequest from a JSON body.
func decodeRecommendBody(w http.ResponseWriter, r *http.Request) (RecommendRequest, error) {
	var req RecommendRequest
	err := decodeJSONBody(w, r, &req)
	return req, err
}

// PredictRequest is the body of POST /api/v1/predict.
type PredictRequest struct {
	Text string `json:"text" validate:"required,notblank,max=20000"`

	// Bought is the known outcome, "positive" or "negative". It is logged
	// and scored but never changes the prediction.
	Bought string `json:"bought" validate:"omitempty,max=16"`
}

// actual parses Bought; nil when absent.
func (req *PredictRequest) actual() (*intent.Label, error) {
	if strings.TrimSpace(req.Bought) == "" {
		return nil, nil
	}
	l, err := intent.ParseLabel(req.Bought)
	if err != nil {
		return nil, fmt.Errorf("bought: %w", err)
	}
	return &l, nil
}

// decodeJSONBody reads one JSON object into out. Unknown fields are
// rejected so that typos do not silently change results.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, out interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
