// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package services

import (
	"context"
	"fmt"
)

// StartStopper is satisfied by *docstore.Collector.
type StartStopper interface {
	Start(ctx context.Context) error
	Stop()
}

// CollectorService adapts a Start/Stop component, the BadgerDB value log
// collector, to suture's Serve pattern:
//  1. Start spawns the component's goroutines and returns
//  2. Serve blocks until ctx is canceled
//  3. Stop waits for the goroutines to finish
type CollectorService struct {
	component StartStopper
	name      string
}

// NewCollectorService wraps component.
func NewCollectorService(component StartStopper) *CollectorService {
	return &CollectorService{component: component, name: "docstore-gc"}
}

// Serve implements suture.Service. A failed Start is returned so the
// supervisor backs off and retries.
func (s *CollectorService) Serve(ctx context.Context) error {
	if err := s.component.Start(ctx); err != nil {
		return fmt.Errorf("%s start failed: %w", s.name, err)
	}
	<-ctx.Done()
	s.component.Stop()
	return ctx.Err()
}

func (s *CollectorService) String() string {
	return s.name
}
