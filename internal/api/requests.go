// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/mapmark/internal/auth"
	"github.com/tomtom215/mapmark/internal/docstore"
	"github.com/tomtom215/mapmark/internal/models"
)

// pathParam returns the unescaped chi URL parameter. chi matches on the
// raw path when the request needed escaping.
func pathParam(r *http.Request, name string) (string, error) {
	raw := chi.URLParam(r, name)
	v, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	return v, nil
}

// target resolves the collection and document id addressed by the path.
// Without a kind the project itself is the document in the root collection.
func target(r *http.Request) (docstore.Collection, string, error) {
	project, err := pathParam(r, "project")
	if err != nil {
		return docstore.Collection{}, "", err
	}
	kind, err := pathParam(r, "kind")
	if err != nil {
		return docstore.Collection{}, "", err
	}
	if kind == "" {
		return docstore.Projects, project, nil
	}

	id, err := pathParam(r, "id")
	if err != nil {
		return docstore.Collection{}, "", err
	}
	coll := docstore.Annotations(project, models.Kind(kind))
	if err := coll.Validate(); err != nil {
		return docstore.Collection{}, "", err
	}
	return coll, id, nil
}

// queryFilters turns query parameters into equality filters in a stable
// order. Values stay strings; the store compares them against numbers and
// booleans by parsing.
func queryFilters(r *http.Request) []docstore.Filter {
	q := r.URL.Query()
	q.Del(auth.AccessTokenParam)

	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var filters []docstore.Filter
	for _, k := range keys {
		for _, v := range q[k] {
			filters = append(filters, docstore.Eq(k, v))
		}
	}
	return filters
}

// decodeFields reads a JSON object body. An empty body is an empty object.
func decodeFields(r *http.Request) (docstore.Fields, error) {
	if r.Body == nil {
		return docstore.Fields{}, nil
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return docstore.Fields{}, nil
	}
	var fields docstore.Fields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = docstore.Fields{}
	}
	return fields, nil
}

func (rw *ResponseWriter) fieldsError(err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		rw.Error(http.StatusRequestEntityTooLarge, ErrCodeRequestTooLarge, "request body too large")
		return
	}
	rw.BadRequest("request body must be a JSON object: " + err.Error())
}
