// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package logging provides zerolog-based structured logging for Folio.
//
// A global logger is configured once from main with Init and read by every
// component through Logger, WithComponent or Ctx. JSON output is the default;
// console output is meant for running the CLI interactively.
//
//	logging.Init(logging.ConfigFromEnv(logging.DefaultConfig()))
//	logging.Info().Int("items", n).Msg("catalog loaded")
//
// Request and training-cycle identifiers travel in the context:
//
//	ctx = logging.ContextWithRequestID(ctx, logging.NewRequestID())
//	logging.Ctx(ctx).Debug().Msg("resolving seeds")
//
// SlogHandler bridges slog-only consumers (the suture supervisor event hook)
// onto the same zerolog stream.
//
// Environment variables: LOG_LEVEL, LOG_FORMAT (json|console), LOG_CALLER.
package logging
