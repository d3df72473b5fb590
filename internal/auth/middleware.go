// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tomtom215/mapmark/internal/logging"
	"github.com/tomtom215/mapmark/internal/metrics"
)

// AccessTokenParam is the query parameter accepted in place of the
// Authorization header.
const AccessTokenParam = "access_token"

// ErrorWriter renders an authentication failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, status int, message string)

// Middleware attaches an AuthSubject to every request or rejects it.
type Middleware struct {
	authMode      AuthMode
	jwtManager    *JWTManager
	anonymousRole string
	onError       ErrorWriter
}

// NewMiddleware creates the authentication middleware. jwtManager may be nil
// in AuthModeNone. anonymousRole is granted to every request when
// authentication is disabled.
func NewMiddleware(mode AuthMode, jwtManager *JWTManager, anonymousRole string) *Middleware {
	return &Middleware{
		authMode:      mode,
		jwtManager:    jwtManager,
		anonymousRole: anonymousRole,
		onError: func(w http.ResponseWriter, _ *http.Request, status int, message string) {
			http.Error(w, message, status)
		},
	}
}

// SetErrorWriter replaces the plain-text error response.
func (m *Middleware) SetErrorWriter(fn ErrorWriter) {
	if fn != nil {
		m.onError = fn
	}
}

// Mode returns the configured authentication mode.
func (m *Middleware) Mode() AuthMode {
	return m.authMode
}

// Authenticate is chi-compatible middleware that enforces authentication.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.authMode == AuthModeNone || m.jwtManager == nil {
			ctx := WithAuthSubject(r.Context(), AnonymousSubject(m.anonymousRole))
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		subject, err := m.authenticateJWT(r)
		if err != nil {
			m.handleAuthError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithAuthSubject(r.Context(), subject)))
	})
}

func (m *Middleware) authenticateJWT(r *http.Request) (*AuthSubject, error) {
	token, err := extractToken(r)
	if err != nil {
		return nil, err
	}
	claims, err := m.jwtManager.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	return AuthSubjectFromClaims(claims), nil
}

// extractToken reads a bearer token from the Authorization header, or from
// the access_token query parameter when the header is absent.
func extractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if token := r.URL.Query().Get(AccessTokenParam); token != "" {
			return token, nil
		}
		return "", ErrNoCredentials
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errors.Join(ErrInvalidCredentials, errors.New("invalid authorization header"))
	}
	return parts[1], nil
}

// handleAuthError sends the appropriate response for auth errors.
func (m *Middleware) handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var reason, message string
	switch {
	case errors.Is(err, ErrNoCredentials):
		reason, message = "missing", "authentication required"
		w.Header().Set("WWW-Authenticate", `Bearer realm="mapmark"`)
	case errors.Is(err, ErrExpiredCredentials):
		reason, message = "expired", "credentials expired"
	default:
		reason, message = "invalid", "invalid credentials"
	}
	metrics.AuthFailures.WithLabelValues(reason).Inc()
	logging.Ctx(r.Context()).Warn().
		Err(err).
		Str("reason", reason).
		Str("path", r.URL.Path).
		Msg("Authentication failed")
	m.onError(w, r, http.StatusUnauthorized, message)
}
