// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package store

import "github.com/tomtom215/mapmark/internal/models"

// localKeys hands out the LocalID of routes and areas.
type localKeys struct {
	last uint64
}

func (k *localKeys) next() uint64 {
	k.last++
	return k.last
}

// identity reads and writes the keys a selectable entity is tracked by.
type identity[T any] struct {
	local  func(*T) *uint64
	remote func(*T) string
}

// rekey gives every entry of items a LocalID. An entry without one takes
// the key of the old entry with the same RemoteID, or a fresh key. It
// returns the index in items of the entry that was selected in old, or -1.
func (id identity[T]) rekey(old, items []T, selected int, keys *localKeys) int {
	used := make(map[uint64]bool, len(items))
	for i := range items {
		if k := *id.local(&items[i]); k != 0 {
			used[k] = true
		}
	}
	byRemote := make(map[string]uint64, len(old))
	for i := range old {
		if r := id.remote(&old[i]); r != "" {
			byRemote[r] = *id.local(&old[i])
		}
	}
	for i := range items {
		k := id.local(&items[i])
		if *k != 0 {
			continue
		}
		if inherited := byRemote[id.remote(&items[i])]; inherited != 0 && !used[inherited] {
			*k = inherited
		} else {
			*k = keys.next()
		}
		used[*k] = true
	}

	if selected < 0 || selected >= len(old) {
		return -1
	}
	want := *id.local(&old[selected])
	wantRemote := id.remote(&old[selected])
	for i := range items {
		if want != 0 && *id.local(&items[i]) == want {
			return i
		}
	}
	if wantRemote != "" {
		for i := range items {
			if id.remote(&items[i]) == wantRemote {
				return i
			}
		}
	}
	return -1
}

var routeIdentity = identity[models.Route]{
	local:  func(r *models.Route) *uint64 { return &r.LocalID },
	remote: func(r *models.Route) string { return r.RemoteID },
}

var areaIdentity = identity[models.Area]{
	local:  func(a *models.Area) *uint64 { return &a.LocalID },
	remote: func(a *models.Area) string { return a.RemoteID },
}
