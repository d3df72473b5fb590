// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package geometry

import (
	"errors"
	"testing"
)

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// The one-pixel bound holds while the canvas is at least half the image size
// on each axis; smaller canvases cannot represent every image pixel.
func TestImageCanvasRoundTrip(t *testing.T) {
	t.Parallel()

	sizes := []struct {
		canvas Size
		image  Size
	}{
		{Size{800, 600}, Size{1600, 1200}},
		{Size{733, 419}, Size{1024, 768}},
		{Size{1920, 1080}, Size{640, 480}},
		{Size{999, 1001}, Size{1000, 1000}},
		{Size{1000, 1000}, Size{1000, 1000}},
	}

	for _, sz := range sizes {
		for x := 0; x < sz.image.Width; x += 1 + sz.image.Width/37 {
			for y := 0; y < sz.image.Height; y += 1 + sz.image.Height/41 {
				p := Point{X: x, Y: y}
				c, err := ImageToCanvas(p, sz.canvas, sz.image)
				if err != nil {
					t.Fatalf("ImageToCanvas: %v", err)
				}
				back, err := CanvasToImage(c, sz.canvas, sz.image)
				if err != nil {
					t.Fatalf("CanvasToImage: %v", err)
				}
				if abs(back.X-p.X) > 1 || abs(back.Y-p.Y) > 1 {
					t.Errorf("canvas %v image %v: round trip %v -> %v -> %v exceeds 1px", sz.canvas, sz.image, p, c, back)
				}
			}
		}
	}
}

func TestCanvasImageRoundTripFromCanvas(t *testing.T) {
	t.Parallel()

	canvas := Size{733, 419}
	image := Size{2048, 1536}
	for x := 0; x < canvas.Width; x += 7 {
		for y := 0; y < canvas.Height; y += 5 {
			p := Point{X: x, Y: y}
			img, err := CanvasToImage(p, canvas, image)
			if err != nil {
				t.Fatal(err)
			}
			back, err := ImageToCanvas(img, canvas, image)
			if err != nil {
				t.Fatal(err)
			}
			if abs(back.X-p.X) > 1 || abs(back.Y-p.Y) > 1 {
				t.Fatalf("round trip %v -> %v -> %v exceeds 1px", p, img, back)
			}
		}
	}
}

func TestImageToCanvasScales(t *testing.T) {
	t.Parallel()

	got, err := ImageToCanvas(Point{X: 100, Y: 50}, Size{400, 300}, Size{800, 600})
	if err != nil {
		t.Fatal(err)
	}
	if got != (Point{X: 50, Y: 25}) {
		t.Errorf("ImageToCanvas = %v, want {50 25}", got)
	}

	got, err = CanvasToImage(Point{X: 3, Y: 3}, Size{300, 300}, Size{100, 100})
	if err != nil {
		t.Fatal(err)
	}
	if got != (Point{X: 1, Y: 1}) {
		t.Errorf("CanvasToImage = %v, want {1 1}", got)
	}
}

func TestDegenerateSizes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		canvas Size
		image  Size
	}{
		{"zero canvas width", Size{0, 100}, Size{100, 100}},
		{"zero canvas height", Size{100, 0}, Size{100, 100}},
		{"zero image", Size{100, 100}, Size{0, 0}},
		{"negative image", Size{100, 100}, Size{-5, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ImageToCanvas(Point{1, 1}, tt.canvas, tt.image); !errors.Is(err, ErrDegenerateSize) {
				t.Errorf("ImageToCanvas error = %v, want ErrDegenerateSize", err)
			}
			if _, err := CanvasToImage(Point{1, 1}, tt.canvas, tt.image); !errors.Is(err, ErrDegenerateSize) {
				t.Errorf("CanvasToImage error = %v, want ErrDegenerateSize", err)
			}
		})
	}
}

func TestViewTransform(t *testing.T) {
	t.Parallel()

	v := View{Scale: 2, OffsetX: 10, OffsetY: -4}
	got := CanvasToView(Point{X: 5, Y: 7}, v)
	if got != (PointF{X: 20, Y: 10}) {
		t.Errorf("CanvasToView = %v, want {20 10}", got)
	}
	back := ViewToCanvas(got, v)
	if back != (Point{X: 5, Y: 7}) {
		t.Errorf("ViewToCanvas = %v, want {5 7}", back)
	}

	// Zero scale is treated as identity rather than dividing by zero.
	if p := ViewToCanvas(PointF{X: 3, Y: 4}, View{}); p != (Point{X: 3, Y: 4}) {
		t.Errorf("ViewToCanvas zero scale = %v", p)
	}
}

func TestPointerToCanvas(t *testing.T) {
	t.Parallel()

	// 400x300 CSS element backed by an 800x600 bitmap (DPR 2), offset on the page.
	bounds := Rect{Left: 50, Top: 20, Width: 400, Height: 300}
	bitmap := Size{800, 600}

	tests := []struct {
		name    string
		pointer PointF
		view    View
		want    Point
	}{
		{"identity view", PointF{X: 150, Y: 70}, IdentityView, Point{X: 200, Y: 100}},
		{"zoomed", PointF{X: 150, Y: 70}, View{Scale: 2}, Point{X: 100, Y: 50}},
		{"zoomed and panned", PointF{X: 150, Y: 70}, View{Scale: 2, OffsetX: -100, OffsetY: 40}, Point{X: 150, Y: 30}},
		{"element origin", PointF{X: 50, Y: 20}, IdentityView, Point{X: 0, Y: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := PointerToCanvas(tt.pointer, bounds, bitmap, tt.view)
			if err != nil {
				t.Fatalf("PointerToCanvas: %v", err)
			}
			if got != tt.want {
				t.Errorf("PointerToCanvas = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := PointerToCanvas(PointF{}, Rect{}, bitmap, IdentityView); !errors.Is(err, ErrDegenerateSize) {
		t.Errorf("zero bounds error = %v, want ErrDegenerateSize", err)
	}
	if _, err := PointerToCanvas(PointF{}, bounds, Size{}, IdentityView); !errors.Is(err, ErrDegenerateSize) {
		t.Errorf("zero bitmap error = %v, want ErrDegenerateSize", err)
	}
}
