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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	gws "github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/mapmark/internal/auth"
	"github.com/tomtom215/mapmark/internal/authz"
	"github.com/tomtom215/mapmark/internal/docstore"
	"github.com/tomtom215/mapmark/internal/middleware"
	"github.com/tomtom215/mapmark/internal/websocket"
)

// DefaultMaxBodyBytes bounds request bodies.
const DefaultMaxBodyBytes = 1 << 20

// HealthCheck is one readiness dependency.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps are the collaborators of the API router.
type Deps struct {
	// Store serves every document request and WebSocket subscription.
	Store docstore.Store

	// Hub carries WebSocket clients. Required for /api/v1/ws.
	Hub *websocket.Hub

	// Authn authenticates requests. nil runs every request anonymously as
	// an editor.
	Authn *auth.Middleware

	// Authz authorizes requests. nil allows every authenticated request.
	Authz *authz.Middleware

	// Middleware holds CORS and rate limit settings.
	Middleware *ChiMiddlewareConfig

	// AllowedOrigins restricts WebSocket upgrades. Empty allows any origin.
	AllowedOrigins []string

	// MaxBodyBytes bounds request bodies. Zero uses DefaultMaxBodyBytes.
	MaxBodyBytes int64

	// Checks are evaluated by /api/v1/health/ready.
	Checks []HealthCheck
}

// Router serves the document store API.
type Router struct {
	deps      Deps
	mw        *ChiMiddleware
	authn     *auth.Middleware
	upgrader  *gws.Upgrader
	startTime time.Time
}

// NewRouter validates deps and builds a router.
func NewRouter(deps Deps) (*Router, error) {
	if deps.Store == nil {
		return nil, errors.New("api: store is required")
	}
	if deps.Hub == nil {
		return nil, errors.New("api: websocket hub is required")
	}
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = DefaultMaxBodyBytes
	}

	authn := deps.Authn
	if authn == nil {
		authn = auth.NewMiddleware(auth.AuthModeNone, nil, "editor")
	}
	authn.SetErrorWriter(WriteError)
	if deps.Authz != nil {
		deps.Authz.SetErrorWriter(WriteError)
	}

	return &Router{
		deps:      deps,
		mw:        NewChiMiddleware(deps.Middleware),
		authn:     authn,
		upgrader:  websocket.NewUpgrader(deps.AllowedOrigins),
		startTime: time.Now(),
	}, nil
}

// Handler returns the configured chi router.
func (router *Router) Handler() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.AccessLog)
	r.Use(middleware.PrometheusMetrics)
	r.Use(router.mw.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.mw.RateLimitCustom(RateLimitHealth))
		r.Use(APISecurityHeaders())
		r.Get("/live", router.HealthLive)
		r.Get("/ready", router.HealthReady)
	})

	r.Group(func(r chi.Router) {
		r.Use(router.authn.Authenticate)
		if router.deps.Authz != nil {
			r.Use(router.deps.Authz.AuthorizeRequest)
		}

		r.With(router.mw.RateLimitCustom(RateLimitWebSocket)).Get("/api/v1/ws", router.WebSocket)

		r.Route("/api/v1/projects", func(r chi.Router) {
			r.Use(router.mw.RateLimit())
			r.Use(APISecurityHeaders())
			r.Use(router.limitBody)

			r.Get("/", router.ListProjects)
			r.Route("/{project}", func(r chi.Router) {
				r.Get("/", router.GetDocument)
				r.Put("/", router.SetDocument)
				r.Patch("/", router.UpdateDocument)
				r.Delete("/", router.DeleteDocument)

				r.Route("/{kind}", func(r chi.Router) {
					r.Get("/", router.QueryDocuments)
					r.Post("/", router.AddDocument)
					r.Get("/{id}", router.GetDocument)
					r.Put("/{id}", router.SetDocument)
					r.Patch("/{id}", router.UpdateDocument)
					r.Delete("/{id}", router.DeleteDocument)
				})
			})
		})
	})

	return r
}

func (router *Router) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, router.deps.MaxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}
