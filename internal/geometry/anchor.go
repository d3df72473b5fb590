// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package geometry

// Anchor remembers the image-space position a canvas coordinate was
// projected from. The zero Anchor is unset.
//
// Canvas coordinates are rounded, so converting them back to image space
// loses precision on every resize. An anchored coordinate is re-projected
// from the anchor instead; a coordinate that has since moved is not, since
// the canvas value is then the newer input.
type Anchor struct {
	X, Y int
	set  bool
}

// AnchorAt anchors to the image-space point p.
func AnchorAt(p Point) Anchor {
	return Anchor{X: p.X, Y: p.Y, set: true}
}

// IsSet reports whether the anchor holds a position.
func (a Anchor) IsSet() bool { return a.set }

// ImageOf returns the image-space position of canvas point p. While p is
// still the projection of the anchor onto canvas the anchor is returned
// unchanged; otherwise p is converted.
func (a Anchor) ImageOf(p Point, canvas, image Size) (Point, error) {
	if a.set {
		cp, err := ImageToCanvas(Point{X: a.X, Y: a.Y}, canvas, image)
		if err != nil {
			return Point{}, err
		}
		if cp == p {
			return Point{X: a.X, Y: a.Y}, nil
		}
	}
	return CanvasToImage(p, canvas, image)
}

// Rescale moves canvas point p to a new canvas size. It returns the new
// canvas position and the anchor it was projected from.
func (a Anchor) Rescale(p Point, from, to, image Size) (Point, Anchor, error) {
	ip, err := a.ImageOf(p, from, image)
	if err != nil {
		return Point{}, Anchor{}, err
	}
	cp, err := ImageToCanvas(ip, to, image)
	if err != nil {
		return Point{}, Anchor{}, err
	}
	return cp, AnchorAt(ip), nil
}
