package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple lowercase",
			input:    "Rostock",
			expected: "rostock",
		},
		{
			name:     "strips generic suffix",
			input:    "Rostock Depot",
			expected: "rostock",
		},
		{
			name:     "strips punctuation",
			input:    "Müller & Sons, GmbH",
			expected: "m_ller_sons_gmbh",
		},
		{
			name:     "collapses whitespace",
			input:    "  north   wood   mill ",
			expected: "north_wood_mill",
		},
		{
			name:     "collapses underscores",
			input:    "big__mrkt___depot",
			expected: "big_mrkt",
		},
		{
			name:     "bare suffix word becomes empty",
			input:    "Warehouse",
			expected: "",
		},
		{
			name:     "stacked suffixes all stripped",
			input:    "foo storage depot",
			expected: "foo",
		},
		{
			name:     "suffix in the middle is kept",
			input:    "market street haulage",
			expected: "market_street_haulage",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "only punctuation",
			input:    "!!! --- !!!",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Rostock Depot",
		"big_mrkt_depot",
		"foo storage depot",
		"North Wood Mill",
		"Warehouse",
		"",
		"a b_c-d",
	}

	for _, input := range inputs {
		once := Normalize(input)
		assert.Equal(t, once, Normalize(once), "Normalize must be idempotent for %q", input)
	}
}

func TestSimplify(t *testing.T) {
	// differing only by suffix and underscore punctuation
	assert.Equal(t, Simplify("rostock"), Simplify("Rostock Depot"))
	assert.Equal(t, Simplify("big_market"), Simplify("bigmarket"))
	assert.Equal(t, "bigmrkt", Simplify("big_mrkt_depot"))
	assert.Equal(t, "", Simplify("Depot"))
}

func TestFlatten(t *testing.T) {
	assert.Equal(t, "bigmarket", Flatten("big_market"))
	assert.Equal(t, "rostockdepot", Flatten("Rostock Depot"))
	assert.Equal(t, "", Flatten("---"))
}
