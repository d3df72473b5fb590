// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package store

import "testing"

func TestSignal(t *testing.T) {
	t.Parallel()

	var s Signal[string]
	var got []string

	d1 := s.Connect(func(v string) { got = append(got, "1:"+v) })
	s.Connect(func(v string) { got = append(got, "2:"+v) })

	s.Emit("a")
	d1()
	d1()
	s.Emit("b")

	want := []string{"1:a", "2:a", "2:b"}
	if !equalStrings(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
	if s.Len() != 1 {
		t.Errorf("len = %d, want 1", s.Len())
	}
}
