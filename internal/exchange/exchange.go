// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package exchange

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/mapmark/internal/geometry"
	"github.com/tomtom215/mapmark/internal/models"
	"github.com/tomtom215/mapmark/internal/validation"
)

// ErrImageMismatch is returned when a document was exported from an image of
// a different size.
var ErrImageMismatch = errors.New("document image size does not match")

// Frame carries what every conversion needs: the image reference and the
// two coordinate spaces.
type Frame struct {
	ImageReference string
	Image          geometry.Size
	Canvas         geometry.Size
}

func (f Frame) check() error {
	if !f.Image.Valid() {
		return fmt.Errorf("image %dx%d: %w", f.Image.Width, f.Image.Height, geometry.ErrDegenerateSize)
	}
	if !f.Canvas.Valid() {
		return fmt.Errorf("canvas %dx%d: %w", f.Canvas.Width, f.Canvas.Height, geometry.ErrDegenerateSize)
	}
	return nil
}

func (f Frame) info() models.ImageInfo {
	return models.ImageInfo{Width: f.Image.Width, Height: f.Image.Height}
}

// matches rejects documents from a different image. A missing size is
// accepted.
func (f Frame) matches(info models.ImageInfo) error {
	if info.Width == 0 && info.Height == 0 {
		return nil
	}
	if info.Width != f.Image.Width || info.Height != f.Image.Height {
		return fmt.Errorf("%dx%d, want %dx%d: %w", info.Width, info.Height, f.Image.Width, f.Image.Height, ErrImageMismatch)
	}
	return nil
}

func (f Frame) toImage(p geometry.Point, a geometry.Anchor) (geometry.Point, error) {
	return a.ImageOf(p, f.Canvas, f.Image)
}

// toCanvas projects an image-space record and anchors the result to it.
func (f Frame) toCanvas(x, y int) (geometry.Point, geometry.Anchor, error) {
	ip := geometry.Point{X: x, Y: y}
	cp, err := geometry.ImageToCanvas(ip, f.Canvas, f.Image)
	if err != nil {
		return geometry.Point{}, geometry.Anchor{}, err
	}
	return cp, geometry.AnchorAt(ip), nil
}

func validate(doc any) error {
	if verr := validation.ValidateStruct(doc); verr != nil {
		return verr
	}
	return nil
}

// ExportPoints builds a point document. Unlabeled points are left out.
func ExportPoints(f Frame, points []models.Point, at time.Time) (models.PointExport, error) {
	if err := f.check(); err != nil {
		return models.PointExport{}, err
	}
	doc := models.PointExport{
		ImageReference: f.ImageReference,
		ImageInfo:      f.info(),
		Points:         make([]models.PointExportRecord, 0, len(points)),
		ExportedAt:     at.UTC(),
	}
	for _, p := range points {
		if p.ID == "" {
			continue
		}
		ip, err := f.toImage(p.Position(), p.Image)
		if err != nil {
			return models.PointExport{}, err
		}
		doc.Points = append(doc.Points, models.PointExportRecord{
			Index:    len(doc.Points),
			ID:       p.ID,
			ImageX:   ip.X,
			ImageY:   ip.Y,
			IsMarker: p.IsMarker,
		})
	}
	doc.TotalPoints = len(doc.Points)
	return doc, nil
}

// ImportPoints converts a point document to canvas-space points in index
// order. With asMarkers every point comes in read-only.
func ImportPoints(f Frame, doc models.PointExport, asMarkers bool) ([]models.Point, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	if err := validate(&doc); err != nil {
		return nil, err
	}
	if err := f.matches(doc.ImageInfo); err != nil {
		return nil, err
	}
	out := make([]models.Point, 0, len(doc.Points))
	for _, rec := range sortedBy(doc.Points, func(r models.PointExportRecord) int { return r.Index }) {
		cp, anchor, err := f.toCanvas(rec.ImageX, rec.ImageY)
		if err != nil {
			return nil, err
		}
		out = append(out, models.Point{
			X:        cp.X,
			Y:        cp.Y,
			ID:       validation.FormatPointID(rec.ID),
			IsMarker: rec.IsMarker || asMarkers,
			Image:    anchor,
		})
	}
	return out, nil
}

// ExportSpots builds a spot document. Unnamed spots are left out.
func ExportSpots(f Frame, spots []models.Spot, at time.Time) (models.SpotExport, error) {
	if err := f.check(); err != nil {
		return models.SpotExport{}, err
	}
	doc := models.SpotExport{
		ImageReference: f.ImageReference,
		ImageInfo:      f.info(),
		Spots:          make([]models.SpotExportRecord, 0, len(spots)),
		ExportedAt:     at.UTC(),
	}
	for _, s := range spots {
		if s.Name == "" {
			continue
		}
		ip, err := f.toImage(s.Position(), s.Image)
		if err != nil {
			return models.SpotExport{}, err
		}
		doc.Spots = append(doc.Spots, models.SpotExportRecord{
			Index:  len(doc.Spots),
			Name:   s.Name,
			ImageX: ip.X,
			ImageY: ip.Y,
		})
	}
	doc.TotalSpots = len(doc.Spots)
	return doc, nil
}

// ImportSpots converts a spot document to canvas-space spots.
func ImportSpots(f Frame, doc models.SpotExport) ([]models.Spot, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	if err := validate(&doc); err != nil {
		return nil, err
	}
	if err := f.matches(doc.ImageInfo); err != nil {
		return nil, err
	}
	out := make([]models.Spot, 0, len(doc.Spots))
	for _, rec := range sortedBy(doc.Spots, func(r models.SpotExportRecord) int { return r.Index }) {
		cp, anchor, err := f.toCanvas(rec.ImageX, rec.ImageY)
		if err != nil {
			return nil, err
		}
		out = append(out, models.Spot{X: cp.X, Y: cp.Y, Name: validation.NormalizeSpotName(rec.Name), Image: anchor})
	}
	return out, nil
}

// ExportRoute builds a route document. The route must have both endpoints
// and at least one waypoint.
func ExportRoute(f Frame, r models.Route, at time.Time) (models.RouteExport, error) {
	if err := f.check(); err != nil {
		return models.RouteExport{}, err
	}
	doc := models.RouteExport{
		RouteInfo: models.RouteInfo{
			StartPoint:    r.StartPointID,
			EndPoint:      r.EndPointID,
			WaypointCount: len(r.Waypoints),
		},
		RouteName:      r.Name,
		ImageReference: f.ImageReference,
		ImageInfo:      f.info(),
		Points:         make([]models.RouteExportRecord, 0, len(r.Waypoints)),
		ExportedAt:     at.UTC(),
	}
	for i, w := range r.Waypoints {
		ip, err := f.toImage(geometry.Point{X: w.X, Y: w.Y}, w.Image)
		if err != nil {
			return models.RouteExport{}, err
		}
		doc.Points = append(doc.Points, models.RouteExportRecord{
			Type:   models.WaypointRecordType,
			Index:  i,
			ImageX: ip.X,
			ImageY: ip.Y,
		})
	}
	if err := validate(&doc); err != nil {
		return models.RouteExport{}, err
	}
	return doc, nil
}

// ImportRoute converts a route document to a canvas-space route.
func ImportRoute(f Frame, doc models.RouteExport) (models.Route, error) {
	if err := f.check(); err != nil {
		return models.Route{}, err
	}
	if err := validate(&doc); err != nil {
		return models.Route{}, err
	}
	if err := f.matches(doc.ImageInfo); err != nil {
		return models.Route{}, err
	}
	r := models.Route{
		Name:         doc.RouteName,
		StartPointID: doc.RouteInfo.StartPoint,
		EndPointID:   doc.RouteInfo.EndPoint,
		Waypoints:    make([]models.Waypoint, 0, len(doc.Points)),
	}
	for _, rec := range sortedBy(doc.Points, func(r models.RouteExportRecord) int { return r.Index }) {
		cp, anchor, err := f.toCanvas(rec.ImageX, rec.ImageY)
		if err != nil {
			return models.Route{}, err
		}
		r.Waypoints = append(r.Waypoints, models.Waypoint{X: cp.X, Y: cp.Y, Image: anchor})
	}
	return r, nil
}

// ExportArea builds an area document. The area must be persistable.
func ExportArea(f Frame, a models.Area, at time.Time) (models.AreaExport, error) {
	if err := f.check(); err != nil {
		return models.AreaExport{}, err
	}
	doc := models.AreaExport{
		AreaName:       a.Name,
		ImageReference: f.ImageReference,
		ImageInfo:      f.info(),
		Vertices:       make([]models.AreaExportRecord, 0, len(a.Vertices)),
		ExportedAt:     at.UTC(),
	}
	for i, v := range a.Vertices {
		ip, err := f.toImage(geometry.Point{X: v.X, Y: v.Y}, v.Image)
		if err != nil {
			return models.AreaExport{}, err
		}
		doc.Vertices = append(doc.Vertices, models.AreaExportRecord{Index: i, ImageX: ip.X, ImageY: ip.Y})
	}
	if err := validate(&doc); err != nil {
		return models.AreaExport{}, err
	}
	return doc, nil
}

// ImportArea converts an area document to a canvas-space area. Vertices are
// put back in centroid-angle order.
func ImportArea(f Frame, doc models.AreaExport) (models.Area, error) {
	if err := f.check(); err != nil {
		return models.Area{}, err
	}
	if err := validate(&doc); err != nil {
		return models.Area{}, err
	}
	if err := f.matches(doc.ImageInfo); err != nil {
		return models.Area{}, err
	}
	vs := make([]models.Vertex, 0, len(doc.Vertices))
	for _, rec := range sortedBy(doc.Vertices, func(r models.AreaExportRecord) int { return r.Index }) {
		cp, anchor, err := f.toCanvas(rec.ImageX, rec.ImageY)
		if err != nil {
			return models.Area{}, err
		}
		vs = append(vs, models.Vertex{X: cp.X, Y: cp.Y, Image: anchor})
	}
	a := models.Area{Name: doc.AreaName, Vertices: models.ReorderVertices(vs)}
	a.IsModified = a.Persistable()
	return a, nil
}

// Write encodes doc as indented JSON.
func Write(w io.Writer, doc any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

// Read decodes one JSON document from r into a value of type T.
func Read[T any](r io.Reader) (T, error) {
	var doc T
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return doc, fmt.Errorf("decode export: %w", err)
	}
	return doc, nil
}
