// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package auth

import (
	"context"
	"errors"
	"slices"
	"time"
)

// AuthMode represents the authentication strategy.
type AuthMode string

const (
	// AuthModeNone disables authentication
	AuthModeNone AuthMode = "none"

	// AuthModeJWT uses JWT Bearer tokens
	AuthModeJWT AuthMode = "jwt"
)

// ParseAuthMode converts a string to AuthMode.
func ParseAuthMode(s string) (AuthMode, error) {
	switch s {
	case "none", "":
		return AuthModeNone, nil
	case "jwt":
		return AuthModeJWT, nil
	default:
		return "", errors.New("invalid auth mode: " + s)
	}
}

// String returns the string representation of AuthMode.
func (m AuthMode) String() string {
	return string(m)
}

// Standard authentication errors
var (
	// ErrNoCredentials indicates no credentials were provided.
	ErrNoCredentials = errors.New("no credentials provided")

	// ErrInvalidCredentials indicates credentials were invalid.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrExpiredCredentials indicates credentials have expired.
	ErrExpiredCredentials = errors.New("credentials expired")
)

// AnonymousID is the subject id used when authentication is disabled.
const AnonymousID = "anonymous"

// AuthSubject represents an authenticated user.
type AuthSubject struct {
	// ID is the opaque user id recorded as a project's author.
	ID string `json:"id"`

	// Username is the human-readable name, if the token carries one.
	Username string `json:"username,omitempty"`

	// Roles contains the subject's assigned roles.
	// Used by Casbin for authorization.
	Roles []string `json:"roles,omitempty"`

	// AuthMethod indicates how the subject was authenticated.
	AuthMethod AuthMode `json:"auth_method"`

	// ExpiresAt is when the authentication expires.
	ExpiresAt int64 `json:"expires_at,omitempty"`
}

// HasRole checks if the subject has a specific role.
func (s *AuthSubject) HasRole(role string) bool {
	if role == "" {
		return false
	}
	return slices.Contains(s.Roles, role)
}

// IsExpired checks if the authentication has expired.
func (s *AuthSubject) IsExpired() bool {
	if s.ExpiresAt == 0 {
		return false
	}
	return time.Now().Unix() > s.ExpiresAt
}

// AnonymousSubject returns the subject used in AuthModeNone.
func AnonymousSubject(role string) *AuthSubject {
	s := &AuthSubject{ID: AnonymousID, Username: AnonymousID, AuthMethod: AuthModeNone}
	if role != "" {
		s.Roles = []string{role}
	}
	return s
}

// AuthSubjectFromClaims creates an AuthSubject from JWT claims. The
// registered subject claim is preferred as the id, falling back to the
// username.
func AuthSubjectFromClaims(claims *Claims) *AuthSubject {
	if claims == nil {
		return nil
	}

	id := claims.Subject
	if id == "" {
		id = claims.Username
	}
	subject := &AuthSubject{
		ID:         id,
		Username:   claims.Username,
		AuthMethod: AuthModeJWT,
	}
	if claims.Role != "" {
		subject.Roles = []string{claims.Role}
	}
	if claims.ExpiresAt != nil {
		subject.ExpiresAt = claims.ExpiresAt.Unix()
	}
	return subject
}

type contextKey string

// AuthSubjectContextKey is the context key for AuthSubject.
const AuthSubjectContextKey contextKey = "auth_subject"

// WithAuthSubject returns a copy of ctx carrying s.
func WithAuthSubject(ctx context.Context, s *AuthSubject) context.Context {
	return context.WithValue(ctx, AuthSubjectContextKey, s)
}

// GetAuthSubject returns the subject stored by Authenticate, or nil.
func GetAuthSubject(ctx context.Context) *AuthSubject {
	s, _ := ctx.Value(AuthSubjectContextKey).(*AuthSubject)
	return s
}

// UserID returns the authenticated user id, or "" when there is none.
func UserID(ctx context.Context) string {
	if s := GetAuthSubject(ctx); s != nil {
		return s.ID
	}
	return ""
}
