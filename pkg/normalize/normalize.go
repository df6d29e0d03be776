// Package normalize canonicalizes raw depot and company labels into
// matching keys.
package normalize

import "strings"

// genericSuffixes are location-type words the map export feed appends to
// depot names ("Rostock Depot") that the game definition keys omit.
var genericSuffixes = []string{
	"depot", "factory", "warehouse", "storage", "market",
	"quarry", "site", "plant", "terminal",
}

// Normalize canonicalizes a raw label into a key: trim, lowercase, replace
// everything outside [a-z0-9 _] with a space, collapse whitespace, join with
// underscores, then strip trailing generic suffixes. A label consisting only
// of a generic suffix normalizes to the empty string, as does empty input.
// Normalize is idempotent.
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	s = strings.Join(strings.Fields(b.String()), "_")
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	s = strings.Trim(s, "_")

	return stripSuffixes(s)
}

// stripSuffixes removes trailing generic suffix words until none remain, so
// that Normalize(Normalize(x)) == Normalize(x) holds for every input.
func stripSuffixes(s string) string {
	for {
		stripped := s
		for _, suffix := range genericSuffixes {
			if s == suffix {
				return ""
			}
			if strings.HasSuffix(s, "_"+suffix) {
				stripped = strings.TrimRight(strings.TrimSuffix(s, suffix), "_")
				break
			}
		}
		if stripped == s {
			return s
		}
		s = stripped
	}
}

// Simplify is the matching key form of Normalize: underscores are removed so
// that "big_market" and "bigmarket" compare equal.
func Simplify(raw string) string {
	return strings.ReplaceAll(Normalize(raw), "_", "")
}

// Flatten lowercases a label and keeps only alphanumerics, without suffix
// stripping. Authoritative game-definition keys are matched in this form:
// their keys are already canonical, so stripping a generic word out of one
// (e.g. "big_market") would destroy information instead of removing feed
// noise.
func Flatten(raw string) string {
	s := strings.ToLower(raw)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
