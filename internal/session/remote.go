// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package session

import (
	"context"

	"github.com/tomtom215/mapmark/internal/models"
	"github.com/tomtom215/mapmark/internal/validation"
)

// subscribe re-applies remote snapshots to the local stores. Snapshots go in
// through Replace, which the pipeline never publishes, so they do not echo
// back to the remote store.
func (s *Session) subscribe(ctx context.Context) error {
	if _, err := s.gw.Points().Subscribe(ctx, func(remote []models.Point) error {
		s.Points.Replace(merge(remote, s.Points.GetAll(), pointUnsynced, pointKey))
		return nil
	}); err != nil {
		return err
	}
	if _, err := s.gw.Spots().Subscribe(ctx, func(remote []models.Spot) error {
		s.Spots.Replace(merge(remote, s.Spots.GetAll(), spotUnsynced, spotKey))
		return nil
	}); err != nil {
		return err
	}
	if _, err := s.gw.Routes().Subscribe(ctx, func(remote []models.Route) error {
		s.Routes.Replace(merge(remote, s.Routes.GetAll(), routeUnsynced, routeKey))
		return nil
	}); err != nil {
		return err
	}
	if _, err := s.gw.Areas().Subscribe(ctx, func(remote []models.Area) error {
		s.Areas.Replace(merge(remote, s.Areas.GetAll(), areaUnsynced, areaKey))
		return nil
	}); err != nil {
		return err
	}
	return nil
}

// merge builds the local view of a remote snapshot: every remote entity,
// followed by local entities that were never synced and whose natural key is
// not in the snapshot. Synced local entities missing from the snapshot were
// deleted elsewhere and are dropped. A local edit made between GetAll and
// Replace is lost; the next snapshot carries whatever the remote store kept.
func merge[T any](remote, local []T, unsynced func(T) bool, key func(T) string) []T {
	seen := make(map[string]struct{}, len(remote))
	for _, v := range remote {
		if k := key(v); k != "" {
			seen[k] = struct{}{}
		}
	}
	out := append(make([]T, 0, len(remote)+len(local)), remote...)
	for _, v := range local {
		if !unsynced(v) {
			continue
		}
		if k := key(v); k != "" {
			if _, ok := seen[k]; ok {
				continue
			}
		}
		out = append(out, v)
	}
	return out
}

func pointUnsynced(p models.Point) bool { return p.RemoteID == "" }
func spotUnsynced(s models.Spot) bool   { return s.RemoteID == "" }
func routeUnsynced(r models.Route) bool { return r.RemoteID == "" }
func areaUnsynced(a models.Area) bool   { return a.RemoteID == "" }

func pointKey(p models.Point) string {
	if p.ID == "" || p.IsMarker {
		return ""
	}
	return validation.FormatPointID(p.ID)
}

func spotKey(s models.Spot) string {
	if s.Name == "" {
		return ""
	}
	return validation.SpotKey(s.Name)
}

func routeKey(r models.Route) string {
	if !r.HasEndpoints() {
		return ""
	}
	return validation.EndpointKey(r.StartPointID) + "\x00" + validation.EndpointKey(r.EndPointID)
}

func areaKey(a models.Area) string {
	return a.Name
}
