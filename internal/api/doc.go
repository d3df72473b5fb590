// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

/*
Package api serves the Mapmark document store over HTTP and WebSocket.

It is the server side of docstore.Client: every editor talks to a shared
store through these routes, and receives collection snapshots pushed over
the WebSocket endpoint.

Routes:

	GET    /api/v1/projects                          list projects (?field=value filters)
	GET    /api/v1/projects/{project}                read a project document
	PUT    /api/v1/projects/{project}                create or merge a project document
	PATCH  /api/v1/projects/{project}                merge into a project (counters use $increment)
	DELETE /api/v1/projects/{project}                delete a project document
	GET    /api/v1/projects/{project}/{kind}         query points, spots, routes or areas
	POST   /api/v1/projects/{project}/{kind}         add a document, returns {"id": ...}
	GET    /api/v1/projects/{project}/{kind}/{id}    read one annotation
	PUT    /api/v1/projects/{project}/{kind}/{id}    create or merge one annotation
	PATCH  /api/v1/projects/{project}/{kind}/{id}    merge into one annotation
	DELETE /api/v1/projects/{project}/{kind}/{id}    delete one annotation
	GET    /api/v1/ws                                WebSocket subscriptions
	GET    /api/v1/health/live                       liveness probe
	GET    /api/v1/health/ready                      readiness probe
	GET    /metrics                                  Prometheus metrics

Response Format:

Every JSON response uses the same envelope:

	{"success": true, "data": {...}, "meta": {"request_id": "...", "timestamp": "..."}}
	{"success": false, "error": {"code": "NOT_FOUND", "message": "..."}, "meta": {...}}

Middleware Stack:

Request id, real IP, panic recovery, access log, Prometheus metrics and CORS
run on every route. Document and WebSocket routes add authentication
(auth), Casbin authorization (authz), per-IP rate limiting (httprate),
security headers and a request body limit.

Usage Example:

	router, err := api.NewRouter(api.Deps{
	    Store:  store,
	    Hub:    hub,
	    Authn:  auth.NewMiddleware(auth.AuthModeJWT, jwtManager, ""),
	    Authz:  authz.NewMiddleware(enforcer),
	    Checks: []api.HealthCheck{api.StoreCheck(store)},
	})
	if err != nil {
	    return err
	}
	srv := &http.Server{Addr: ":8080", Handler: router.Handler()}
*/
package api
