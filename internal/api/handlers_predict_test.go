// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tomtom215/folio/internal/recommend/engine"
	"github.com/tomtom215/folio/internal/recommend/intent"
)

func postPredict(h *Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Predict(rec, req)
	return rec
}

func TestPredict(t *testing.T) {
	t.Parallel()

	h := NewHandler(newTestRecommender(testModel(t)))
	rec := postPredict(h, `{"text": "great tea, love it"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body)
	}

	var res engine.IntentResult
	decodeData(t, decodeEnvelope(t, rec), &res)
	if res.Label != intent.Positive {
		t.Errorf("Label = %v, want Positive", res.Label)
	}
	if res.Confidence <= 0.5 || res.Confidence > 1 {
		t.Errorf("Confidence = %v, want in (0.5, 1]", res.Confidence)
	}
	if res.TextHash != intent.TextHash("great tea, love it") || res.ModelVersion != 3 || res.Cached {
		t.Errorf("result = %+v, want an uncached v3 prediction with the text hash", res)
	}
}

func TestPredict_BadRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"empty body", "", ErrCodeBadRequest},
		{"missing text", `{}`, ErrCodeValidationFailed},
		{"null text", `{"text": null}`, ErrCodeValidationFailed},
		{"blank text", `{"text": "   "}`, ErrCodeValidationFailed},
		{"numeric text", `{"text": 42}`, ErrCodeBadRequest},
		{"unknown field", `{"text": "ok", "review": "ok"}`, ErrCodeBadRequest},
		{"unknown outcome", `{"text": "ok", "bought": "maybe"}`, ErrCodeBadRequest},
		{"oversized text", `{"text": "` + strings.Repeat("a", 20001) + `"}`, ErrCodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := postPredict(NewHandler(newTestRecommender(testModel(t))), tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusBadRequest, rec.Body)
			}
			if env := decodeEnvelope(t, rec); env.Error == nil || env.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", env.Error, tt.wantCode)
			}
		})
	}
}

func TestPredict_Unavailable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rec  Recommender
	}{
		{"no model", newTestRecommender(nil)},
		{"no classifier", &stubRecommender{err: engine.ErrNoClassifier}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if rec := postPredict(NewHandler(tt.rec), `{"text": "great tea"}`); rec.Code != http.StatusServiceUnavailable {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
			}
		})
	}
}

func TestGetPredictStats(t *testing.T) {
	t.Parallel()

	h := NewHandler(newTestRecommender(testModel(t)))
	bodies := []string{
		`{"text": "great tea", "bought": "Positive"}`,
		`{"text": "broken cups", "bought": " negative "}`,
		`{"text": "love this kettle"}`,
	}
	for _, body := range bodies {
		if rec := postPredict(h, body); rec.Code != http.StatusOK {
			t.Fatalf("Predict(%s) status = %d (body %s)", body, rec.Code, rec.Body)
		}
	}

	rec := httptest.NewRecorder()
	h.GetPredictStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/predict/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var stats engine.IntentStats
	decodeData(t, decodeEnvelope(t, rec), &stats)
	if stats.Live.Predictions != 3 || stats.Live.Labelled.Examples != 2 {
		t.Errorf("live = %+v, want 3 predictions with 2 labelled", stats.Live)
	}
	if stats.ModelVersion != 3 || stats.Vocabulary == 0 {
		t.Errorf("stats = %+v, want v3 with a vocabulary", stats)
	}

	rec = httptest.NewRecorder()
	NewHandler(&stubRecommender{err: engine.ErrNoClassifier}).
		GetPredictStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/predict/stats", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status without classifier = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}
