// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package sync

import (
	"fmt"

	"github.com/tomtom215/mapmark/internal/docstore"
	"github.com/tomtom215/mapmark/internal/geometry"
	"github.com/tomtom215/mapmark/internal/models"
	"github.com/tomtom215/mapmark/internal/validation"
)

// codec maps one entity kind to and from remote documents.
type codec[T any] interface {
	kind() models.Kind
	// check rejects entities that may not be added.
	check(v T) error
	// key returns the natural key filters used for dedup and a printable form.
	key(v T) ([]docstore.Filter, string)
	// encode converts v to image space and returns its document fields.
	encode(g *Gateway, v T) (docstore.Fields, error)
	// decode converts a document back to a canvas-space entity.
	decode(g *Gateway, d docstore.Document) (T, error)
	remoteID(v T) string
	withRemoteID(v T, id string) T
}

func waypointsToImage(g *Gateway, in []models.Waypoint) ([]models.Waypoint, error) {
	out := make([]models.Waypoint, len(in))
	for i, w := range in {
		at, err := g.imageOf(geometry.Point{X: w.X, Y: w.Y}, w.Image)
		if err != nil {
			return nil, err
		}
		out[i] = models.Waypoint{X: at.X, Y: at.Y}
	}
	return out, nil
}

func waypointsToCanvas(g *Gateway, in []models.Waypoint) ([]models.Waypoint, error) {
	out := make([]models.Waypoint, len(in))
	for i, w := range in {
		at, anchor, err := g.projectPoint(geometry.Point{X: w.X, Y: w.Y})
		if err != nil {
			return nil, err
		}
		out[i] = models.Waypoint{X: at.X, Y: at.Y, Image: anchor}
	}
	return out, nil
}

func verticesToImage(g *Gateway, in []models.Vertex) ([]models.Vertex, error) {
	out := make([]models.Vertex, len(in))
	for i, v := range in {
		at, err := g.imageOf(geometry.Point{X: v.X, Y: v.Y}, v.Image)
		if err != nil {
			return nil, err
		}
		out[i] = models.Vertex{X: at.X, Y: at.Y}
	}
	return out, nil
}

func verticesToCanvas(g *Gateway, in []models.Vertex) ([]models.Vertex, error) {
	out := make([]models.Vertex, len(in))
	for i, v := range in {
		at, anchor, err := g.projectPoint(geometry.Point{X: v.X, Y: v.Y})
		if err != nil {
			return nil, err
		}
		out[i] = models.Vertex{X: at.X, Y: at.Y, Image: anchor}
	}
	return out, nil
}

// pointDoc is the remote form of a point.
type pointDoc struct {
	ID       string `json:"id"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	IsMarker bool   `json:"isMarker"`
}

type pointCodec struct{}

func (pointCodec) kind() models.Kind { return models.KindPoints }

func (pointCodec) check(p models.Point) error {
	if validation.FormatPointID(p.ID) == "" {
		return fmt.Errorf("point at (%d,%d): %w", p.X, p.Y, ErrBlankKey)
	}
	return nil
}

func (pointCodec) key(p models.Point) ([]docstore.Filter, string) {
	id := validation.FormatPointID(p.ID)
	return []docstore.Filter{docstore.Eq("id", id)}, id
}

func (pointCodec) encode(g *Gateway, p models.Point) (docstore.Fields, error) {
	at, err := g.imageOf(p.Position(), p.Image)
	if err != nil {
		return nil, err
	}
	return docstore.FieldsOf(pointDoc{ID: validation.FormatPointID(p.ID), X: at.X, Y: at.Y, IsMarker: p.IsMarker})
}

func (pointCodec) decode(g *Gateway, d docstore.Document) (models.Point, error) {
	var w pointDoc
	if err := d.Decode(&w); err != nil {
		return models.Point{}, err
	}
	at, anchor, err := g.projectPoint(geometry.Point{X: w.X, Y: w.Y})
	if err != nil {
		return models.Point{}, err
	}
	return models.Point{X: at.X, Y: at.Y, ID: w.ID, IsMarker: w.IsMarker, Image: anchor, RemoteID: d.ID}, nil
}

func (pointCodec) remoteID(p models.Point) string { return p.RemoteID }

func (pointCodec) withRemoteID(p models.Point, id string) models.Point {
	p.RemoteID = id
	return p
}

// spotDoc is the remote form of a spot. NameKey carries the case- and
// width-folded name so lookups match every spelling of the same spot.
type spotDoc struct {
	Name    string `json:"name"`
	NameKey string `json:"nameKey"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
}

type spotCodec struct{}

func (spotCodec) kind() models.Kind { return models.KindSpots }

func (spotCodec) check(s models.Spot) error {
	if validation.SpotKey(s.Name) == "" {
		return fmt.Errorf("spot at (%d,%d): %w", s.X, s.Y, ErrBlankKey)
	}
	return nil
}

func (spotCodec) key(s models.Spot) ([]docstore.Filter, string) {
	k := validation.SpotKey(s.Name)
	return []docstore.Filter{docstore.Eq("nameKey", k)}, k
}

func (spotCodec) encode(g *Gateway, s models.Spot) (docstore.Fields, error) {
	at, err := g.imageOf(s.Position(), s.Image)
	if err != nil {
		return nil, err
	}
	return docstore.FieldsOf(spotDoc{
		Name:    validation.NormalizeSpotName(s.Name),
		NameKey: validation.SpotKey(s.Name),
		X:       at.X,
		Y:       at.Y,
	})
}

func (spotCodec) decode(g *Gateway, d docstore.Document) (models.Spot, error) {
	var w spotDoc
	if err := d.Decode(&w); err != nil {
		return models.Spot{}, err
	}
	at, anchor, err := g.projectPoint(geometry.Point{X: w.X, Y: w.Y})
	if err != nil {
		return models.Spot{}, err
	}
	return models.Spot{X: at.X, Y: at.Y, Name: w.Name, Image: anchor, RemoteID: d.ID}, nil
}

func (spotCodec) remoteID(s models.Spot) string { return s.RemoteID }

func (spotCodec) withRemoteID(s models.Spot, id string) models.Spot {
	s.RemoteID = id
	return s
}

// routeDoc is the remote form of a route. StartKey and EndKey carry the
// folded endpoints so lookups match every spelling of the same pair.
type routeDoc struct {
	Name         string            `json:"routeName"`
	StartPointID string            `json:"startPointId"`
	EndPointID   string            `json:"endPointId"`
	StartKey     string            `json:"startKey"`
	EndKey       string            `json:"endKey"`
	Waypoints    []models.Waypoint `json:"waypoints"`
}

type routeCodec struct{}

func (routeCodec) kind() models.Kind { return models.KindRoutes }

func (routeCodec) check(r models.Route) error {
	switch {
	case !r.HasEndpoints():
		return fmt.Errorf("route %q: endpoints not set: %w", r.Name, ErrIncompleteRoute)
	case validation.SamePointID(r.StartPointID, r.EndPointID):
		return fmt.Errorf("route %q: start equals end: %w", r.Name, ErrIncompleteRoute)
	case len(r.Waypoints) == 0:
		return fmt.Errorf("route %q: no waypoints: %w", r.Name, ErrIncompleteRoute)
	}
	return nil
}

func (routeCodec) key(r models.Route) ([]docstore.Filter, string) {
	start, end := validation.EndpointKey(r.StartPointID), validation.EndpointKey(r.EndPointID)
	return []docstore.Filter{
		docstore.Eq("startKey", start),
		docstore.Eq("endKey", end),
	}, start + "->" + end
}

func (routeCodec) encode(g *Gateway, r models.Route) (docstore.Fields, error) {
	wps, err := waypointsToImage(g, r.Waypoints)
	if err != nil {
		return nil, err
	}
	return docstore.FieldsOf(routeDoc{
		Name:         r.Name,
		StartPointID: validation.EndpointRef(r.StartPointID),
		EndPointID:   validation.EndpointRef(r.EndPointID),
		StartKey:     validation.EndpointKey(r.StartPointID),
		EndKey:       validation.EndpointKey(r.EndPointID),
		Waypoints:    wps,
	})
}

func (routeCodec) decode(g *Gateway, d docstore.Document) (models.Route, error) {
	var w routeDoc
	if err := d.Decode(&w); err != nil {
		return models.Route{}, err
	}
	wps, err := waypointsToCanvas(g, w.Waypoints)
	if err != nil {
		return models.Route{}, err
	}
	return models.Route{Name: w.Name, StartPointID: w.StartPointID, EndPointID: w.EndPointID, Waypoints: wps, RemoteID: d.ID}, nil
}

func (routeCodec) remoteID(r models.Route) string { return r.RemoteID }

func (routeCodec) withRemoteID(r models.Route, id string) models.Route {
	r.RemoteID = id
	return r
}

// areaDoc is the remote form of an area.
type areaDoc struct {
	Name       string          `json:"areaName"`
	Vertices   []models.Vertex `json:"vertices"`
	IsModified bool            `json:"isModified"`
}

type areaCodec struct{}

func (areaCodec) kind() models.Kind { return models.KindAreas }

func (areaCodec) check(a models.Area) error {
	if !a.Persistable() {
		return fmt.Errorf("area %q with %d vertices: %w", a.Name, len(a.Vertices), ErrAreaNotPersistable)
	}
	return nil
}

func (areaCodec) key(a models.Area) ([]docstore.Filter, string) {
	return []docstore.Filter{docstore.Eq("areaName", a.Name)}, a.Name
}

func (areaCodec) encode(g *Gateway, a models.Area) (docstore.Fields, error) {
	vs, err := verticesToImage(g, a.Vertices)
	if err != nil {
		return nil, err
	}
	return docstore.FieldsOf(areaDoc{Name: a.Name, Vertices: vs, IsModified: a.Persistable()})
}

func (areaCodec) decode(g *Gateway, d docstore.Document) (models.Area, error) {
	var w areaDoc
	if err := d.Decode(&w); err != nil {
		return models.Area{}, err
	}
	vs, err := verticesToCanvas(g, w.Vertices)
	if err != nil {
		return models.Area{}, err
	}
	a := models.Area{Name: w.Name, Vertices: vs, RemoteID: d.ID}
	a.IsModified = a.Persistable()
	return a, nil
}

func (areaCodec) remoteID(a models.Area) string { return a.RemoteID }

func (areaCodec) withRemoteID(a models.Area, id string) models.Area {
	a.RemoteID = id
	return a
}
