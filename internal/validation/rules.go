// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package validation

import (
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/mapmark/internal/models"
)

// Result is the outcome of an input rule. Invalid results carry a message
// suitable for display.
type Result struct {
	IsValid bool   `json:"isValid"`
	Message string `json:"message,omitempty"`
}

// Valid returns a passing Result.
func Valid() Result {
	return Result{IsValid: true}
}

// Invalid returns a failing Result with a formatted message.
func Invalid(format string, args ...any) Result {
	return Result{Message: fmt.Sprintf(format, args...)}
}

// DuplicatePointID returns the index of another point whose id matches id,
// skipping the point at index skip. Blank ids never collide. It returns -1
// when there is no collision.
func DuplicatePointID(points []models.Point, id string, skip int) int {
	key := FormatPointID(id)
	if key == "" {
		return -1
	}
	for i, p := range points {
		if i != skip && FormatPointID(p.ID) == key {
			return i
		}
	}
	return -1
}

// DuplicateSpotName is DuplicatePointID for spot names.
func DuplicateSpotName(spots []models.Spot, name string, skip int) int {
	key := SpotKey(name)
	if key == "" {
		return -1
	}
	for i, s := range spots {
		if i != skip && SpotKey(s.Name) == key {
			return i
		}
	}
	return -1
}

// CheckPointID validates committing id to the point at index.
func CheckPointID(points []models.Point, id string, index int) Result {
	if j := DuplicatePointID(points, id, index); j >= 0 {
		return Invalid("point id %s is already used", FormatPointID(id))
	}
	return Valid()
}

// CheckSpot validates committing name to the spot at index.
func CheckSpot(spots []models.Spot, name string, index int) Result {
	if r := CheckSpotName(name); !r.IsValid {
		return r
	}
	if j := DuplicateSpotName(spots, name, index); j >= 0 {
		return Invalid("spot name %s is already used", NormalizeSpotName(name))
	}
	return Valid()
}

// EndpointRegistered reports whether ref names a registered point id or
// spot name.
func EndpointRegistered(ref string, pointIDs, spotNames []string) bool {
	if ref == "" {
		return false
	}
	if slices.ContainsFunc(pointIDs, func(id string) bool { return id != "" && SamePointID(id, ref) }) {
		return true
	}
	return slices.ContainsFunc(spotNames, func(n string) bool { return n != "" && SameSpotName(n, ref) })
}

// CheckRouteEndpoints validates a route against the registered point ids and
// spot names. spotNames may be nil.
func CheckRouteEndpoints(r models.Route, pointIDs, spotNames []string) Result {
	start, end := r.StartPointID, r.EndPointID

	switch {
	case start == "" && end == "":
		return Invalid("start and end points are not set")
	case start != "" && !EndpointRegistered(start, pointIDs, spotNames):
		return Invalid("start point %s is not registered", start)
	case end != "" && !EndpointRegistered(end, pointIDs, spotNames):
		return Invalid("end point %s is not registered", end)
	case start == "":
		return Invalid("start point is not set")
	case end == "":
		return Invalid("end point is not set")
	case SamePointID(start, end):
		return Invalid("start and end points must differ")
	case len(r.Waypoints) < 1:
		return Invalid("route needs at least one waypoint")
	}
	return Valid()
}

// CheckArea validates that an area can be persisted.
func CheckArea(a models.Area) Result {
	switch {
	case a.Name == "":
		return Invalid("area name is required")
	case len(a.Vertices) < models.MinAreaVertices:
		return Invalid("area needs at least %d vertices (has %d)", models.MinAreaVertices, len(a.Vertices))
	}
	return Valid()
}

func validatePointIDTag(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s != "" && FormatPointID(s) == s
}

func validateSpotNameTag(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == NormalizeSpotName(s) && CheckSpotName(s).IsValid
}

func validateKindTag(fl validator.FieldLevel) bool {
	return models.Kind(fl.Field().String()).Valid()
}
