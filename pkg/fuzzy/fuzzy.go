// Package fuzzy implements the string similarity scoring used for company
// reconciliation and city name resolution.
package fuzzy

import (
	"strings"
	"unicode"
)

// Scorer provides string comparison algorithms.
type Scorer struct{}

// NewScorer creates a new Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score returns a combined similarity in [0, 1]: the maximum of the edit
// distance ratio and the token overlap. Case-insensitive equal strings score
// 1.0; if either string is empty (and they are not equal) the score is 0.0.
func (s *Scorer) Score(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a == b {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	ratio := 1.0 - float64(s.Distance(a, b))/float64(max(len([]rune(a)), len([]rune(b))))
	overlap := s.TokenOverlap(a, b)

	if overlap > ratio {
		return overlap
	}
	return ratio
}

// Distance calculates the Levenshtein distance between the lowercased
// strings: insertions, deletions and substitutions at unit cost.
func (s *Scorer) Distance(a, b string) int {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))

	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	row := make([]int, len(rb)+1)
	prevRow := make([]int, len(rb)+1)

	for j := 0; j <= len(rb); j++ {
		prevRow[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		row[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 0
			if ra[i-1] != rb[j-1] {
				cost = 1
			}
			row[j] = min(min(row[j-1]+1, prevRow[j]+1), prevRow[j-1]+cost)
		}
		row, prevRow = prevRow, row
	}

	return prevRow[len(rb)]
}

// TokenOverlap returns the Jaccard similarity of the two token sets, or 0 if
// either set is empty. Tokens are produced by splitting camel case, then
// splitting on any run of non-alphanumeric characters; duplicates collapse.
func (s *Scorer) TokenOverlap(a, b string) float64 {
	ta := tokenize(a)
	tb := tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0.0
	}

	intersection := 0
	for token := range ta {
		if _, ok := tb[token]; ok {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection

	return float64(intersection) / float64(union)
}

// tokenize splits camel-case boundaries, lowercases, and splits on runs of
// non-alphanumeric characters into a set.
func tokenize(s string) map[string]struct{} {
	var b strings.Builder
	b.Grow(len(s) + 4)

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsLower(runes[i-1]) && unicode.IsUpper(r) {
			b.WriteRune('_')
		}
		b.WriteRune(r)
	}

	tokens := make(map[string]struct{})
	for _, token := range strings.FieldsFunc(strings.ToLower(b.String()), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		tokens[token] = struct{}{}
	}
	return tokens
}
