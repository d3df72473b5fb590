// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// MaxSpotNameLength is the longest spot name in characters.
const MaxSpotNameLength = 10

var pointIDPattern = regexp.MustCompile(`^([A-Z])[-\s_]*(\d{1,2})$`)

// Hyphen-like runes that survive width folding.
var hyphens = strings.NewReplacer(
	"\u2010", "-", // hyphen
	"\u2011", "-", // non-breaking hyphen
	"\u2012", "-", // figure dash
	"\u2013", "-", // en dash
	"\u2014", "-", // em dash
	"\u2212", "-", // minus sign
)

// Japanese input methods produce the prolonged sound mark for "-". It is only
// a hyphen inside point ids; spot names keep it.
var prolongedMark = strings.NewReplacer("\u30fc", "-")

// NormalizeWidth folds full-width Latin letters, digits and punctuation to
// ASCII, half-width katakana to full width, maps hyphen variants to "-" and
// trims surrounding whitespace.
func NormalizeWidth(s string) string {
	return strings.TrimSpace(hyphens.Replace(width.Fold.String(s)))
}

// FormatPointID returns the canonical form of a point id.
func FormatPointID(s string) string {
	s = strings.ToUpper(prolongedMark.Replace(NormalizeWidth(s)))
	m := pointIDPattern.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return s
	}
	return fmt.Sprintf("%s-%02d", m[1], n)
}

// IsCanonicalPointID reports whether s is a non-empty id in <Letter>-<2 digits> form.
func IsCanonicalPointID(s string) bool {
	return len(s) == 4 && pointIDPattern.MatchString(s) && s[1] == '-'
}

// NormalizeSpotName width-folds and trims a spot name. Case is preserved.
func NormalizeSpotName(s string) string {
	return NormalizeWidth(s)
}

// SpotKey is the identity of a spot name: two names with the same key are
// the same spot.
func SpotKey(name string) string {
	return strings.ToUpper(NormalizeSpotName(name))
}

// EndpointRef canonicalizes a route endpoint. A point id takes its canonical
// form; anything else is a spot name and is width-folded.
func EndpointRef(ref string) string {
	if id := FormatPointID(ref); IsCanonicalPointID(id) {
		return id
	}
	return NormalizeSpotName(ref)
}

// EndpointKey is the identity of a route endpoint: the canonical point id,
// or the SpotKey of a spot name.
func EndpointKey(ref string) string {
	if id := FormatPointID(ref); IsCanonicalPointID(id) {
		return id
	}
	return SpotKey(ref)
}

// SamePointID reports whether two raw ids name the same point.
func SamePointID(a, b string) bool {
	return FormatPointID(a) == FormatPointID(b)
}

// SameSpotName reports whether two raw names name the same spot.
func SameSpotName(a, b string) bool {
	return SpotKey(a) == SpotKey(b)
}

// CheckSpotName validates a committed spot name. The empty name is valid and
// means the spot should be discarded.
func CheckSpotName(name string) Result {
	if n := utf8.RuneCountInString(NormalizeSpotName(name)); n > MaxSpotNameLength {
		return Invalid("spot name must be at most %d characters (got %d)", MaxSpotNameLength, n)
	}
	return Valid()
}
