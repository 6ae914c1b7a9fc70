// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/folio/internal/recommend"
	"github.com/tomtom215/folio/internal/recommend/engine"
)

func TestGetRecommendations_ContentSeeds(t *testing.T) {
	t.Parallel()

	h := NewHandler(newTestRecommender(testModel(t)))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations?seed=item_1&seed=Nonexistent+Gadget&k=3", nil)
	rec := httptest.NewRecorder()
	h.GetRecommendations(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body)
	}
	env := decodeEnvelope(t, rec)
	if !env.Success || env.Meta == nil {
		t.Fatalf("envelope = %+v, want success with meta", env)
	}

	var resp recommend.Response
	decodeData(t, env, &resp)
	if resp.Strategy != recommend.StrategyContent {
		t.Errorf("Strategy = %v, want content", resp.Strategy)
	}
	if len(resp.Items) != 3 || resp.K != 3 {
		t.Errorf("got %d items with K=%d, want 3", len(resp.Items), resp.K)
	}
	for _, it := range resp.Items {
		if it.ID == "item_1" {
			t.Error("seed item returned in its own recommendations")
		}
	}
	if len(resp.Unresolved) != 1 || resp.Unresolved[0] != "Nonexistent Gadget" {
		t.Errorf("Unresolved = %v, want [Nonexistent Gadget]", resp.Unresolved)
	}
	if resp.ModelVersion != 3 {
		t.Errorf("ModelVersion = %d, want 3", resp.ModelVersion)
	}
}

func TestGetRecommendations_KnownUserAndExclude(t *testing.T) {
	t.Parallel()

	h := NewHandler(newTestRecommender(testModel(t)))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations?user_id=u2&exclude=item_1,item_5&k=10", nil)
	rec := httptest.NewRecorder()
	h.GetRecommendations(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body)
	}
	var resp recommend.Response
	decodeData(t, decodeEnvelope(t, rec), &resp)
	if resp.Strategy != recommend.StrategyLatentFactor {
		t.Errorf("Strategy = %v, want latent_factor", resp.Strategy)
	}
	for _, it := range resp.Items {
		if it.ID == "item_1" || it.ID == "item_5" {
			t.Errorf("excluded item %s returned", it.ID)
		}
	}
}

func TestGetRecommendations_NoSignalIsEmpty(t *testing.T) {
	t.Parallel()

	h := NewHandler(newTestRecommender(testModel(t)))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations?user_id=stranger", nil)
	rec := httptest.NewRecorder()
	h.GetRecommendations(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp recommend.Response
	decodeData(t, decodeEnvelope(t, rec), &resp)
	if resp.Strategy != recommend.StrategyNone || len(resp.Items) != 0 {
		t.Errorf("got %v with %d items, want none and empty", resp.Strategy, len(resp.Items))
	}
}

func TestGetRecommendations_BadInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		query    string
		wantCode string
	}{
		{"non-numeric k", "k=ten", ErrCodeBadRequest},
		{"negative k", "k=-1", ErrCodeValidationFailed},
		{"huge k", "k=5000", ErrCodeValidationFailed},
		{"blank seed", "seed=%20%20", ErrCodeValidationFailed},
		{"control character", "user_id=a%00b", ErrCodeValidationFailed},
	}

	h := NewHandler(&stubRecommender{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations?"+tt.query, nil)
			rec := httptest.NewRecorder()
			h.GetRecommendations(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			env := decodeEnvelope(t, rec)
			if env.Success || env.Error == nil || env.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", env.Error, tt.wantCode)
			}
		})
	}
}

func TestPostRecommendations(t *testing.T) {
	t.Parallel()

	stub := &stubRecommender{resp: &recommend.Response{Items: []recommend.ScoredItem{}, K: 5}}
	h := NewHandler(stub)

	body := `{"seeds": ["Green Tea Kettle", "item_3"], "user_id": " u1 ", "k": 5, "exclude": ["item_4"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.PostRecommendations(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body)
	}
	got := stub.lastRequest()
	if len(got.Seeds) != 2 || got.Seeds[0] != "Green Tea Kettle" {
		t.Errorf("Seeds = %v", got.Seeds)
	}
	if got.UserID != "u1" || got.K != 5 {
		t.Errorf("UserID = %q, K = %d, want u1 and 5", got.UserID, got.K)
	}
	if len(got.Exclude) != 1 || got.Exclude[0] != "item_4" {
		t.Errorf("Exclude = %v, want [item_4]", got.Exclude)
	}
}

func TestPostRecommendations_BadBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"empty", "", ErrCodeBadRequest},
		{"malformed", `{"seeds": [`, ErrCodeBadRequest},
		{"unknown field", `{"seed": "item_1"}`, ErrCodeBadRequest},
		{"wrong type", `{"k": "ten"}`, ErrCodeBadRequest},
		{"too many seeds", `{"seeds": [` + strings.Repeat(`"a",`, 50) + `"a"]}`, ErrCodeValidationFailed},
		{"too large", `{"user_id": "` + strings.Repeat("x", maxRequestBody) + `"}`, ErrCodeBadRequest},
	}

	h := NewHandler(&stubRecommender{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.PostRecommendations(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			if env := decodeEnvelope(t, rec); env.Error == nil || env.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", env.Error, tt.wantCode)
			}
		})
	}
}

func TestRecommendations_EngineErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"no model", engine.ErrNoModel, http.StatusServiceUnavailable},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"canceled", context.Canceled, statusClientClosedRequest},
		{"other", errors.New("matrix exploded"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewHandler(&stubRecommender{err: tt.err})
			req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations?seed=item_1", nil)
			rec := httptest.NewRecorder()
			h.GetRecommendations(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if env := decodeEnvelope(t, rec); env.Success {
				t.Error("Success = true on an engine error")
			}
		})
	}
}

func TestRecommendations_NoModelWithRealEngine(t *testing.T) {
	t.Parallel()

	h := NewHandler(newTestRecommender(nil))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations?seed=item_1", nil)
	rec := httptest.NewRecorder()
	h.GetRecommendations(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

// blockingRecommender waits for its context.
type blockingRecommender struct{ stubRecommender }

func (b *blockingRecommender) Recommend(ctx context.Context, _ recommend.Request) (*recommend.Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRecommendations_RequestTimeout(t *testing.T) {
	t.Parallel()

	h := NewHandler(&blockingRecommender{}, WithRequestTimeout(20*time.Millisecond))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations?seed=item_1", nil)
	rec := httptest.NewRecorder()
	h.GetRecommendations(rec, req)

	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusGatewayTimeout)
	}
}
