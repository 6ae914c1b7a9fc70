// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/recommend/engine"
)

// ErrRetrainDisabled is reported when no trainer is configured.
var ErrRetrainDisabled = errors.New("on-demand retraining is not enabled")

// statusClientClosedRequest is the nginx convention for a client that hung up.
const statusClientClosedRequest = 499

// respondEngineError maps errors from the recommender and the training
// pipeline onto HTTP responses.
func respondEngineError(rw *ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, engine.ErrNoModel):
		rw.ServiceUnavailable("No model is loaded yet; retry after the first training cycle")
	case errors.Is(err, engine.ErrNoClassifier):
		rw.ServiceUnavailable("The serving model has no intent classifier; import labelled reviews and retrain")
	case errors.Is(err, engine.ErrTrainingInProgress):
		rw.Conflict("A training cycle is already running")
	case errors.Is(err, engine.ErrTrainingUnavailable):
		rw.ServiceUnavailable("Training is not running; retry shortly")
	case errors.Is(err, ErrRetrainDisabled):
		rw.NotFound(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		rw.GatewayTimeout("Request timed out")
	case errors.Is(err, context.Canceled):
		// Nobody is listening; the status only shows up in logs and metrics.
		rw.Error(statusClientClosedRequest, ErrCodeBadRequest, "Request canceled")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		rw.InternalError("Internal server error")
	}
}
