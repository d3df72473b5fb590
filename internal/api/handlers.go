// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package api

import (
	"net/http"

	"github.com/tomtom215/mapmark/internal/auth"
	"github.com/tomtom215/mapmark/internal/docstore"
	"github.com/tomtom215/mapmark/internal/websocket"
)

// ListProjects handles GET /api/v1/projects.
func (router *Router) ListProjects(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	docs, err := router.deps.Store.Query(r.Context(), docstore.Projects, queryFilters(r)...)
	if err != nil {
		rw.StoreError(err)
		return
	}
	rw.List(docs)
}

// QueryDocuments handles GET /api/v1/projects/{project}/{kind}. Every query
// parameter except access_token is an equality filter.
func (router *Router) QueryDocuments(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	coll, _, err := target(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	docs, err := router.deps.Store.Query(r.Context(), coll, queryFilters(r)...)
	if err != nil {
		rw.StoreError(err)
		return
	}
	rw.List(docs)
}

// GetDocument handles GET on a project or an annotation document.
func (router *Router) GetDocument(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	coll, id, err := target(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	doc, err := router.deps.Store.Get(r.Context(), coll, id)
	if err != nil {
		rw.StoreError(err)
		return
	}
	rw.Success(doc)
}

// SetDocument handles PUT: create the document or merge into it.
func (router *Router) SetDocument(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	coll, id, err := target(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	fields, err := decodeFields(r)
	if err != nil {
		rw.fieldsError(err)
		return
	}
	if err := router.deps.Store.Set(r.Context(), coll, id, fields); err != nil {
		rw.StoreError(err)
		return
	}
	rw.Success(nil)
}

// AddDocument handles POST /api/v1/projects/{project}/{kind}.
func (router *Router) AddDocument(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	coll, _, err := target(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	fields, err := decodeFields(r)
	if err != nil {
		rw.fieldsError(err)
		return
	}
	id, err := router.deps.Store.Add(r.Context(), coll, fields)
	if err != nil {
		rw.StoreError(err)
		return
	}
	rw.Created(docstore.AddResponse{ID: id})
}

// UpdateDocument handles PATCH: merge fields into an existing document.
func (router *Router) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	coll, id, err := target(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	fields, err := decodeFields(r)
	if err != nil {
		rw.fieldsError(err)
		return
	}
	if err := router.deps.Store.Update(r.Context(), coll, id, fields); err != nil {
		rw.StoreError(err)
		return
	}
	rw.Success(nil)
}

// DeleteDocument handles DELETE. Deleting a missing document succeeds.
func (router *Router) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	coll, id, err := target(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if err := router.deps.Store.Delete(r.Context(), coll, id); err != nil {
		rw.StoreError(err)
		return
	}
	rw.Success(nil)
}

// WebSocket handles GET /api/v1/ws.
func (router *Router) WebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWS(router.deps.Hub, router.deps.Store, router.upgrader, w, r, auth.UserID(r.Context()))
}
