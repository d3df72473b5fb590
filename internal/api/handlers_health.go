// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/mapmark/internal/docstore"
	"github.com/tomtom215/mapmark/internal/logging"
)

// readinessTimeout bounds each readiness check.
const readinessTimeout = 2 * time.Second

// storeProbeID is read by StoreCheck. It is not a valid image name.
const storeProbeID = ".readiness"

// HealthLive handles liveness probe requests. It only reports that the
// process serves HTTP.
func (router *Router) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":   true,
		"uptime":  time.Since(router.startTime).Seconds(),
		"clients": router.deps.Hub.GetClientCount(),
	})
}

// HealthReady handles readiness probe requests. It returns 503 while any
// check fails.
func (router *Router) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	checks := make(map[string]string, len(router.deps.Checks))
	ready := true
	for _, hc := range router.deps.Checks {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		err := hc.Check(ctx)
		cancel()
		if err != nil {
			ready = false
			checks[hc.Name] = err.Error()
			logging.Ctx(r.Context()).Warn().Err(err).Str("check", hc.Name).Msg("Readiness check failed")
			continue
		}
		checks[hc.Name] = "ok"
	}

	data := map[string]interface{}{
		"ready":  ready,
		"checks": checks,
		"uptime": time.Since(router.startTime).Seconds(),
	}
	if !ready {
		rw.writeJSON(http.StatusServiceUnavailable, APIResponse{
			Success: false,
			Data:    data,
			Error:   &APIError{Code: ErrCodeServiceUnavailable, Message: "not ready"},
			Meta:    rw.meta(),
		})
		return
	}
	rw.Success(data)
}

// StoreCheck reports whether store answers reads.
func StoreCheck(store docstore.Store) HealthCheck {
	return HealthCheck{
		Name: "store",
		Check: func(ctx context.Context) error {
			_, err := store.Get(ctx, docstore.Projects, storeProbeID)
			if errors.Is(err, docstore.ErrNotFound) {
				return nil
			}
			return err
		},
	}
}
