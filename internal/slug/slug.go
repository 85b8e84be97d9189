// Package slug turns catalog names into URL-safe path segments.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Slugify lower-cases and trims name, replaces whitespace runs with a single
// hyphen, drops every rune outside [a-z0-9-] and collapses repeated hyphens.
// It never fails and Slugify(Slugify(x)) == Slugify(x).
//
// Distinct names may share a slug ("ABC 1" and "abc-1"); callers resolve such
// collisions first-write-wins.
func Slugify(name string) string {
	lower := cases.Lower(language.Und).String(name)
	lower = strings.TrimSpace(lower)

	var b strings.Builder
	b.Grow(len(lower))

	inSpace := false
	lastHyphen := false
	for _, r := range lower {
		if unicode.IsSpace(r) {
			if !inSpace {
				inSpace = true
				if !lastHyphen {
					b.WriteByte('-')
					lastHyphen = true
				}
			}
			continue
		}
		inSpace = false

		switch {
		case r == '-':
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		}
	}

	return b.String()
}

// Key strips the hyphens from a slug. Two names can only share a slug if
// they share a key, and the key of a name is its lower-cased text with every
// rune outside [a-z0-9] removed, which a store can compute on its own.
func Key(s string) string {
	return strings.ReplaceAll(s, "-", "")
}
