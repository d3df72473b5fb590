// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

// Package validation holds the identifier rules for annotations and struct
// validation for export documents and API payloads.
//
// # Identifier rules
//
// Point ids and spot names are width-folded before use: full-width Latin
// letters, digits and hyphen variants become their ASCII forms. Point ids are
// then uppercased and, when they look like a letter followed by one or two
// digits, rewritten to the canonical <Letter>-<2 digits> form:
//
//	FormatPointID("a1")   // "A-01"
//	FormatPointID("Ａ-７") // "A-07"
//	FormatPointID("b 12") // "B-12"
//
// FormatPointID is idempotent. Anything that does not match the pattern is
// returned folded and uppercased but otherwise untouched.
//
// Rejections are values, not errors. Every rule returns a Result:
//
//	if r := validation.CheckRouteEndpoints(route, ids, names); !r.IsValid {
//	    show(r.Message)
//	}
//
// # Struct validation
//
// GetValidator returns a singleton go-playground/validator instance with
// three extra tags:
//   - pointid: value is already in FormatPointID form
//   - spotname: width-folded spot name of at most 10 characters
//   - kind: one of points, spots, routes, areas
//
// ValidateStruct translates failures into a RequestValidationError that the
// API turns into a VALIDATION_ERROR response.
package validation
