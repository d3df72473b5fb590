// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "this_is_a_very_long_secret_key_for_testing_purposes_12345"

func newTestManager(t *testing.T, timeout time.Duration) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(testSecret, timeout)
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	return m
}

func TestNewJWTManager(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{"valid secret", testSecret, false},
		{"empty secret", "", true},
		{"short secret", "too-short", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager, err := NewJWTManager(tt.secret, time.Hour)
			if tt.wantErr {
				if err == nil {
					t.Error("NewJWTManager() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewJWTManager() unexpected error = %v", err)
			}
			if manager == nil {
				t.Error("NewJWTManager() returned nil manager")
			}
		})
	}
}

func TestNewJWTManager_DefaultTimeout(t *testing.T) {
	t.Parallel()
	m := newTestManager(t, 0)
	if m.timeout != 24*time.Hour {
		t.Errorf("timeout = %v, want 24h", m.timeout)
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	t.Parallel()
	manager := newTestManager(t, time.Hour)

	tests := []struct {
		name     string
		subject  string
		username string
		role     string
		wantID   string
	}{
		{"subject and name", "u-42", "alice", "editor", "u-42"},
		{"subject only", "u-7", "", "viewer", "u-7"},
		{"username only", "", "bob", "editor", "bob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := manager.GenerateToken(tt.subject, tt.username, tt.role)
			if err != nil {
				t.Fatalf("GenerateToken() error = %v", err)
			}
			if strings.Count(token, ".") != 2 {
				t.Fatalf("token %q is not a compact JWS", token)
			}

			claims, err := manager.ValidateToken(token)
			if err != nil {
				t.Fatalf("ValidateToken() error = %v", err)
			}
			if claims.Role != tt.role {
				t.Errorf("Role = %q, want %q", claims.Role, tt.role)
			}
			subject := AuthSubjectFromClaims(claims)
			if subject.ID != tt.wantID {
				t.Errorf("subject ID = %q, want %q", subject.ID, tt.wantID)
			}
			if !subject.HasRole(tt.role) {
				t.Errorf("subject roles = %v, want %q", subject.Roles, tt.role)
			}
		})
	}
}

func TestValidateToken_Rejects(t *testing.T) {
	t.Parallel()
	manager := newTestManager(t, time.Hour)

	other, err := NewJWTManager(strings.Repeat("x", MinSecretLength), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	foreign, err := other.GenerateToken("u-1", "", "editor")
	if err != nil {
		t.Fatal(err)
	}

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Role: "editor",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	expiredToken, err := expired.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}

	anonymous := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{Role: "editor"})
	anonymousToken, err := anonymous.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		Role:             "editor",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1"},
	})
	noneToken, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"garbage", "not.a.token", ErrInvalidCredentials},
		{"wrong secret", foreign, ErrInvalidCredentials},
		{"expired", expiredToken, ErrExpiredCredentials},
		{"no subject", anonymousToken, ErrInvalidCredentials},
		{"alg none", noneToken, ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manager.ValidateToken(tt.token)
			if !errors.Is(err, tt.want) {
				t.Errorf("ValidateToken() error = %v, want %v", err, tt.want)
			}
		})
	}
}
