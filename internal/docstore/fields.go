// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package docstore

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Fields holds a document's JSON-compatible values. After normalization
// numbers are float64 and nested objects are map[string]any.
type Fields map[string]any

const incrementKey = "$increment"

// increment is a merge instruction that adds n to a numeric field.
type increment struct {
	n float64
}

func (i increment) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]float64{incrementKey: i.n})
}

// Increment returns a field value that Update and Set add to the stored
// number instead of overwriting it. A missing or non-numeric field starts
// from zero.
func Increment(n int) any {
	return increment{n: float64(n)}
}

// FieldsOf encodes v, typically a tagged struct, into normalized Fields.
func FieldsOf(v any) (Fields, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	return parseIncrements(raw), nil
}

// Decode unmarshals the document's fields into v.
func (d Document) Decode(v any) error {
	data, err := json.Marshal(d.Fields)
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", d.ID, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode document %s: %w", d.ID, err)
	}
	return nil
}

// UnmarshalJSON restores increment instructions from their wire form.
func (f *Fields) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = parseIncrements(raw)
	return nil
}

func parseIncrements(raw map[string]any) Fields {
	if raw == nil {
		return nil
	}
	out := make(Fields, len(raw))
	for k, v := range raw {
		if m, ok := v.(map[string]any); ok && len(m) == 1 {
			if n, ok := m[incrementKey].(float64); ok {
				out[k] = increment{n: n}
				continue
			}
		}
		out[k] = v
	}
	return out
}

// normalize round-trips f through JSON so stored values have a single
// representation regardless of the caller's Go types.
func normalize(f Fields) (Fields, error) {
	if f == nil {
		return Fields{}, nil
	}
	return FieldsOf(map[string]any(f))
}

// merge applies patch onto base and returns a new map.
func merge(base, patch Fields) Fields {
	out := make(Fields, len(base)+len(patch))
	maps.Copy(out, base)
	for k, v := range patch {
		if inc, ok := v.(increment); ok {
			cur, _ := toFloat(out[k])
			out[k] = cur + inc.n
			continue
		}
		out[k] = v
	}
	return out
}

// Clone returns a deep copy of f.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case Fields:
		return t.Clone()
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = cloneValue(vv)
		}
		return s
	default:
		return v
	}
}

// normalizeFilters gives filter values the same representation as stored
// values, so a typed string or an int compares like its JSON form.
func normalizeFilters(filters []Filter) ([]Filter, error) {
	out := make([]Filter, len(filters))
	for i, flt := range filters {
		data, err := json.Marshal(flt.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal filter %s: %w", flt.Field, err)
		}
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("unmarshal filter %s: %w", flt.Field, err)
		}
		out[i] = Filter{Field: flt.Field, Value: v}
	}
	return out, nil
}

func matches(f Fields, filters []Filter) bool {
	for _, flt := range filters {
		v, ok := f[flt.Field]
		if !ok || !valuesEqual(v, flt.Value) {
			return false
		}
	}
	return true
}

// valuesEqual compares a stored value with a filter value. Numbers compare
// numerically, and string filter values coming from query strings are parsed
// against numeric and boolean stored values.
func valuesEqual(stored, want any) bool {
	if a, ok := toFloat(stored); ok {
		if b, ok := toFloat(want); ok {
			return a == b
		}
		if s, ok := want.(string); ok {
			b, err := strconv.ParseFloat(s, 64)
			return err == nil && a == b
		}
		return false
	}
	if a, ok := stored.(bool); ok {
		switch b := want.(type) {
		case bool:
			return a == b
		case string:
			pb, err := strconv.ParseBool(b)
			return err == nil && a == pb
		}
		return false
	}
	return reflect.DeepEqual(stored, want)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func sortDocuments(docs []Document) {
	slices.SortFunc(docs, func(a, b Document) int {
		return strings.Compare(a.ID, b.ID)
	})
}
