// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrDegenerateSize is returned when an image, canvas or element size has a
// zero (or negative) dimension.
var ErrDegenerateSize = errors.New("degenerate size: width and height must be positive")

// Point is an integer position in image or canvas space.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// PointF is a fractional position. Pointer events and view-space results use it.
type PointF struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a pixel extent.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// Rect is the on-page bounding box of the canvas element in CSS pixels.
type Rect struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// View holds the zoom scale and pan offset applied on top of canvas space.
type View struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
}

// IdentityView is the unzoomed, unpanned view.
var IdentityView = View{Scale: 1}

// Round rounds half away from zero, matching how stored coordinates are snapped.
func Round(v float64) int {
	return int(math.Round(v))
}

// RoundPoint snaps a fractional point to the integer grid.
func RoundPoint(p PointF) Point {
	return Point{X: Round(p.X), Y: Round(p.Y)}
}

func checkSizes(canvas, image Size) error {
	if !canvas.Valid() {
		return fmt.Errorf("canvas %dx%d: %w", canvas.Width, canvas.Height, ErrDegenerateSize)
	}
	if !image.Valid() {
		return fmt.Errorf("image %dx%d: %w", image.Width, image.Height, ErrDegenerateSize)
	}
	return nil
}

// ImageToCanvas scales an image-space point into canvas space.
func ImageToCanvas(p Point, canvas, image Size) (Point, error) {
	if err := checkSizes(canvas, image); err != nil {
		return Point{}, err
	}
	sx := float64(canvas.Width) / float64(image.Width)
	sy := float64(canvas.Height) / float64(image.Height)
	return Point{X: Round(float64(p.X) * sx), Y: Round(float64(p.Y) * sy)}, nil
}

// CanvasToImage scales a canvas-space point back into image space.
func CanvasToImage(p Point, canvas, image Size) (Point, error) {
	if err := checkSizes(canvas, image); err != nil {
		return Point{}, err
	}
	sx := float64(image.Width) / float64(canvas.Width)
	sy := float64(image.Height) / float64(canvas.Height)
	return Point{X: Round(float64(p.X) * sx), Y: Round(float64(p.Y) * sy)}, nil
}

// CanvasToView applies zoom and pan: p*scale + offset.
func CanvasToView(p Point, v View) PointF {
	scale := v.Scale
	if scale == 0 {
		scale = 1
	}
	return PointF{
		X: float64(p.X)*scale + v.OffsetX,
		Y: float64(p.Y)*scale + v.OffsetY,
	}
}

// ViewToCanvas inverts CanvasToView and rounds to the canvas grid.
func ViewToCanvas(p PointF, v View) Point {
	scale := v.Scale
	if scale == 0 {
		scale = 1
	}
	return Point{
		X: Round((p.X - v.OffsetX) / scale),
		Y: Round((p.Y - v.OffsetY) / scale),
	}
}

// PointerToCanvas converts a pointer position in page CSS pixels into canvas
// space. It removes the element offset, corrects for the ratio between the
// element's CSS size and its bitmap size (device pixel ratio), then inverts the
// view transform. Every pointer gesture must enter through this function.
func PointerToCanvas(pointer PointF, bounds Rect, bitmap Size, v View) (Point, error) {
	if bounds.Width <= 0 || bounds.Height <= 0 {
		return Point{}, fmt.Errorf("element bounds %.0fx%.0f: %w", bounds.Width, bounds.Height, ErrDegenerateSize)
	}
	if !bitmap.Valid() {
		return Point{}, fmt.Errorf("canvas bitmap %dx%d: %w", bitmap.Width, bitmap.Height, ErrDegenerateSize)
	}

	ratioX := float64(bitmap.Width) / bounds.Width
	ratioY := float64(bitmap.Height) / bounds.Height

	bitmapPt := PointF{
		X: (pointer.X - bounds.Left) * ratioX,
		Y: (pointer.Y - bounds.Top) * ratioY,
	}
	return ViewToCanvas(bitmapPt, v), nil
}

// Distance returns the Euclidean distance between two canvas points.
func Distance(a, b Point) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}
