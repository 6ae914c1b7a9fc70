// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package services adapts Folio's long-running components to suture.Service.
//
// Each service blocks in Serve until its context is canceled, returns
// ctx.Err() on shutdown, and implements fmt.Stringer so supervisor events
// name it. Dependencies are narrow interfaces (Pipeline, ModelSwapper,
// Purger, Maintainer, HTTPServer) so the services can be tested with fakes.
package services
