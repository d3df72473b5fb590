// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package session

import (
	"context"

	"github.com/tomtom215/mapmark/internal/models"
	"github.com/tomtom215/mapmark/internal/store"
	"github.com/tomtom215/mapmark/internal/sync"
	"github.com/tomtom215/mapmark/internal/validation"
)

// SaveResult reports an explicit save. An invalid Check means nothing was
// sent. Updated is set when the entity was already synced and its document
// was rewritten in place; otherwise Remote is the add outcome, which may be a
// duplicate for the caller to resolve.
type SaveResult[T any] struct {
	Check   validation.Result
	Updated bool
	Remote  sync.AddResult[T]
}

// SaveRoute persists the selected route. Endpoints must be set, distinct and
// registered as a point id or spot name, and the route needs a waypoint.
// Remote failures are returned.
func (s *Session) SaveRoute(ctx context.Context) (SaveResult[models.Route], error) {
	if err := s.check(); err != nil {
		return SaveResult[models.Route]{}, err
	}
	r, _, ok := s.Routes.Selected()
	if !ok {
		return SaveResult[models.Route]{Check: validation.Invalid("no route selected")}, nil
	}
	if check := s.Routes.ValidateEndpoints(s.Points.IDs(), s.Spots.Names()); !check.IsValid {
		return SaveResult[models.Route]{Check: check}, nil
	}

	if r.RemoteID != "" {
		if err := s.gw.Routes().Update(ctx, r); err != nil {
			return SaveResult[models.Route]{Check: validation.Valid()}, err
		}
		return SaveResult[models.Route]{Check: validation.Valid(), Updated: true}, nil
	}

	res, err := s.gw.Routes().Add(ctx, r)
	if err != nil {
		return SaveResult[models.Route]{Check: validation.Valid()}, err
	}
	if res.Status == sync.StatusAdded {
		s.Routes.BindRemoteID(r.StartPointID, r.EndPointID, res.RemoteID)
	}
	return SaveResult[models.Route]{Check: validation.Valid(), Remote: res}, nil
}

// SaveArea persists the selected area once it has a name and enough
// vertices.
func (s *Session) SaveArea(ctx context.Context) (SaveResult[models.Area], error) {
	if err := s.check(); err != nil {
		return SaveResult[models.Area]{}, err
	}
	a, _, ok := s.Areas.Selected()
	if !ok {
		return SaveResult[models.Area]{Check: validation.Invalid("no area selected")}, nil
	}
	if check := s.Areas.Validate(); !check.IsValid {
		return SaveResult[models.Area]{Check: check}, nil
	}

	if a.RemoteID != "" {
		if err := s.gw.Areas().Update(ctx, a); err != nil {
			return SaveResult[models.Area]{Check: validation.Valid()}, err
		}
		return SaveResult[models.Area]{Check: validation.Valid(), Updated: true}, nil
	}

	res, err := s.gw.Areas().Add(ctx, a)
	if err != nil {
		return SaveResult[models.Area]{Check: validation.Valid()}, err
	}
	if res.Status == sync.StatusAdded {
		s.Areas.BindRemoteID(a.Name, res.RemoteID)
	}
	return SaveResult[models.Area]{Check: validation.Valid(), Remote: res}, nil
}

// OverwriteRoute resolves a duplicate route save by writing the local route
// over the stored one and binding it locally.
func (s *Session) OverwriteRoute(ctx context.Context, res sync.AddResult[models.Route]) error {
	r, err := s.gw.Routes().Overwrite(ctx, res)
	if err != nil {
		return err
	}
	s.Routes.BindRemoteID(r.StartPointID, r.EndPointID, r.RemoteID)
	return nil
}

// OverwriteArea resolves a duplicate area save.
func (s *Session) OverwriteArea(ctx context.Context, res sync.AddResult[models.Area]) error {
	a, err := s.gw.Areas().Overwrite(ctx, res)
	if err != nil {
		return err
	}
	s.Areas.BindRemoteID(a.Name, a.RemoteID)
	return nil
}

// OverwritePoint resolves a duplicate reported by OnPointDuplicate.
func (s *Session) OverwritePoint(ctx context.Context, res sync.AddResult[models.Point]) error {
	p, err := s.gw.Points().Overwrite(ctx, res)
	if err != nil {
		return err
	}
	s.Points.BindRemoteID(p.ID, p.RemoteID)
	return nil
}

// OverwriteSpot resolves a duplicate reported by OnSpotDuplicate.
func (s *Session) OverwriteSpot(ctx context.Context, res sync.AddResult[models.Spot]) error {
	sp, err := s.gw.Spots().Overwrite(ctx, res)
	if err != nil {
		return err
	}
	s.Spots.BindRemoteID(sp.Name, sp.RemoteID)
	return nil
}

// NewRoute starts a new route and selects it.
func (s *Session) NewRoute() int {
	return s.Routes.Create()
}

// NewArea starts a new area and selects it.
func (s *Session) NewArea() int {
	return s.Areas.Create()
}

// DeleteSelectedRoute removes the selected route. A synced route is removed
// remotely by the pipeline.
func (s *Session) DeleteSelectedRoute() error {
	_, i, ok := s.Routes.Selected()
	if !ok {
		return store.ErrNoSelection
	}
	return s.Routes.DeleteAt(i)
}

// DeleteSelectedArea removes the selected area.
func (s *Session) DeleteSelectedArea() error {
	_, i, ok := s.Areas.Selected()
	if !ok {
		return store.ErrNoSelection
	}
	return s.Areas.DeleteAt(i)
}
