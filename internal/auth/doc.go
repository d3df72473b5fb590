// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

/*
Package auth authenticates requests to the document store API.

Mapmark does not run a login flow. Tokens are issued by an external identity
provider or by the mapmark-server token command, and the server only verifies
them. The verified subject is the opaque user id the editor shows as the
author of a project.

Authentication Modes:

  - none: every request runs as an anonymous subject with the configured
    anonymous role. Suitable for a single-user or trusted-network deployment.
  - jwt: HS256 bearer tokens. The token is read from the Authorization header,
    or from the access_token query parameter for WebSocket upgrades where
    browsers cannot set headers.

Usage Example:

	jwtManager, err := auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.TokenTTL)
	if err != nil {
	    return err
	}
	mw := auth.NewMiddleware(auth.AuthModeJWT, jwtManager, "viewer")

	r := chi.NewRouter()
	r.Use(mw.Authenticate)
	r.Get("/api/v1/projects", func(w http.ResponseWriter, r *http.Request) {
	    subject := auth.GetAuthSubject(r.Context())
	    _ = subject.ID
	})

Roles carried by the subject are evaluated by the authz package.
*/
package auth
