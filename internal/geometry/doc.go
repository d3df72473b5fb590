// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

// Package geometry converts coordinates between the three spaces an annotation
// passes through and provides the polygon helpers used by area editing.
//
// # Coordinate Spaces
//
//   - Image space: pixel grid of the original raster. The only space that is
//     persisted or exported.
//   - Canvas space: pixel grid of the on-screen canvas bitmap. Changes whenever
//     the canvas is resized. Local entity stores hold canvas coordinates.
//   - View space: canvas space scaled by the zoom level and shifted by the pan
//     offset. Used for popup placement only, never stored.
//
// Every conversion rounds to the nearest integer. Conversions always start
// from the canonical value (image to canvas, or canvas to image) so rounding
// error never accumulates across repeated resizes. A canvas/image round trip
// may be off by one pixel per axis when the scale factor is not integral.
//
// # Failure Semantics
//
// Zero-sized image or canvas dimensions return ErrDegenerateSize. Callers treat
// this as "no image loaded" and abort the gesture.
//
// # Usage
//
//	canvasPt, err := geometry.PointerToCanvas(pointer, bounds, bitmap, view)
//	if err != nil {
//	    return // no image loaded
//	}
//	imagePt, err := geometry.CanvasToImage(canvasPt, canvasSize, imageSize)
package geometry
