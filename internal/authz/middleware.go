// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package authz

import (
	"net/http"

	"github.com/tomtom215/mapmark/internal/auth"
	"github.com/tomtom215/mapmark/internal/logging"
	"github.com/tomtom215/mapmark/internal/metrics"
)

// Middleware provides authorization middleware using Casbin.
type Middleware struct {
	enforcer *Enforcer
	onError  auth.ErrorWriter
}

// NewMiddleware creates a new authorization middleware.
func NewMiddleware(enforcer *Enforcer) *Middleware {
	return &Middleware{
		enforcer: enforcer,
		onError: func(w http.ResponseWriter, _ *http.Request, status int, message string) {
			http.Error(w, message, status)
		},
	}
}

// SetErrorWriter replaces the plain-text error response.
func (m *Middleware) SetErrorWriter(fn auth.ErrorWriter) {
	if fn != nil {
		m.onError = fn
	}
}

// AuthorizeRequest derives the action from the HTTP method and authorizes
// the request path. It must run after auth.Middleware.Authenticate.
func (m *Middleware) AuthorizeRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := auth.GetAuthSubject(r.Context())
		if subject == nil {
			m.onError(w, r, http.StatusForbidden, "no authentication context")
			return
		}

		action := methodToAction(r.Method)
		allowed, err := m.enforcer.EnforceWithRoles(subject.ID, subject.Roles, r.URL.Path, action)
		if err != nil {
			metrics.AuthzDecisions.WithLabelValues(action, "error").Inc()
			logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Authorization error")
			m.onError(w, r, http.StatusInternalServerError, "authorization failed")
			return
		}
		if !allowed {
			metrics.AuthzDecisions.WithLabelValues(action, "denied").Inc()
			logging.Ctx(r.Context()).Debug().
				Str("subject", subject.ID).
				Strs("roles", subject.Roles).
				Str("action", action).
				Str("path", r.URL.Path).
				Msg("Request denied")
			m.onError(w, r, http.StatusForbidden, "insufficient permissions")
			return
		}

		metrics.AuthzDecisions.WithLabelValues(action, "allowed").Inc()
		next.ServeHTTP(w, r)
	})
}

// methodToAction maps HTTP methods to Casbin actions.
func methodToAction(method string) string {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return ActionWrite
	case http.MethodDelete:
		return ActionDelete
	default:
		return ActionRead
	}
}
