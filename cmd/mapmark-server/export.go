// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tomtom215/mapmark/internal/config"
	"github.com/tomtom215/mapmark/internal/docstore"
	"github.com/tomtom215/mapmark/internal/exchange"
	"github.com/tomtom215/mapmark/internal/geometry"
	"github.com/tomtom215/mapmark/internal/logging"
	"github.com/tomtom215/mapmark/internal/models"
	"github.com/tomtom215/mapmark/internal/session"
	"github.com/tomtom215/mapmark/internal/sync"
)

// projectExport bundles every annotation of a project in image space.
type projectExport struct {
	Points models.PointExport   `json:"points"`
	Spots  models.SpotExport    `json:"spots"`
	Routes []models.RouteExport `json:"routes"`
	Areas  []models.AreaExport  `json:"areas"`
}

// runExport opens a project on a remote server and writes its annotations
// as JSON.
//
//	mapmark-server export -project harbor.png -width 4000 -height 3000 -o harbor.json
func runExport(cfg *config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	project := fs.String("project", "", "project key (image file name)")
	width := fs.Int("width", 0, "image width in pixels")
	height := fs.Int("height", 0, "image height in pixels")
	user := fs.String("user", "mapmark-export", "user id stamped on the project document")
	output := fs.String("o", "", "output file, default stdout")
	timeout := fs.Duration("timeout", time.Minute, "overall timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *project == "" {
		return errors.New("export: -project is required")
	}
	image := geometry.Size{Width: *width, Height: *height}
	if !image.Valid() {
		return fmt.Errorf("export: -width and -height must be positive: %w", geometry.ErrDegenerateSize)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, err := docstore.NewClient(cfg.Client.Docstore())
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	var remote docstore.Store = client
	if cfg.Client.Breaker {
		remote = sync.NewBreakerStore(client, sync.DefaultBreakerConfig())
	}
	defer func() {
		if err := remote.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing remote store")
		}
	}()

	sess, err := session.Open(ctx, remote, session.Config{
		Project:           *project,
		Image:             image,
		User:              *user,
		Thresholds:        cfg.Editor.Thresholds(),
		PositionTolerance: cfg.Editor.PositionTolerance,
	})
	if err != nil {
		return fmt.Errorf("export: open %s: %w", *project, err)
	}
	defer func() { _ = sess.Close() }()

	doc, err := buildExport(sess, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	out := stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		defer f.Close()
		out = f
	}
	if err := exchange.Write(out, doc); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	logging.Info().
		Str("project", *project).
		Int("points", len(doc.Points.Points)).
		Int("spots", len(doc.Spots.Spots)).
		Int("routes", len(doc.Routes)).
		Int("areas", len(doc.Areas)).
		Msg("Project exported")
	return nil
}

func buildExport(sess *session.Session, at time.Time) (projectExport, error) {
	frame := sess.Frame()
	var doc projectExport
	var err error

	if doc.Points, err = exchange.ExportPoints(frame, sess.Points.GetAll(), at); err != nil {
		return doc, fmt.Errorf("points: %w", err)
	}
	if doc.Spots, err = exchange.ExportSpots(frame, sess.Spots.GetAll(), at); err != nil {
		return doc, fmt.Errorf("spots: %w", err)
	}
	// Drafts that were never saved cannot be exported.
	for _, r := range sess.Routes.GetAll() {
		if !r.HasEndpoints() || len(r.Waypoints) == 0 {
			continue
		}
		re, err := exchange.ExportRoute(frame, r, at)
		if err != nil {
			return doc, fmt.Errorf("route %s-%s: %w", r.StartPointID, r.EndPointID, err)
		}
		doc.Routes = append(doc.Routes, re)
	}
	for _, a := range sess.Areas.GetAll() {
		if !a.Persistable() {
			continue
		}
		ae, err := exchange.ExportArea(frame, a, at)
		if err != nil {
			return doc, fmt.Errorf("area %s: %w", a.Name, err)
		}
		doc.Areas = append(doc.Areas, ae)
	}
	return doc, nil
}
