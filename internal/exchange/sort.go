// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package exchange

import (
	"cmp"
	"slices"
)

// sortedBy returns a copy of records in ascending index order. Records with
// equal indexes keep their file order.
func sortedBy[T any](records []T, index func(T) int) []T {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b T) int { return cmp.Compare(index(a), index(b)) })
	return out
}
