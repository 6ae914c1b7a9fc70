// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is built once and shared; it caches struct
// metadata, so repeated validation of the same request type is cheap.
// Error field names follow the json tags of the validated struct, so
// failures point at the names clients actually sent.
//
// # Custom Tags
//
//   - notblank: the string has a non-space character
//   - identifier: notblank, at most 256 bytes, no control characters
//
// # Usage
//
//	type RecommendRequest struct {
//	    Seeds []string `json:"seeds" validate:"max=50,dive,identifier"`
//	    K     int      `json:"k" validate:"gte=0,lte=1000"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    rw.ValidationError(verr.Error(), verr.Details())
//	    return
//	}
package validation
