package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var metricPairs = [][2]string{
	{"", ""},
	{"", "nonempty"},
	{"analyze sales data for Q3 performance", "review financial metrics"},
	{"analyze sales data for Q3 performance", "Analyze sales data for Q3 performance."},
	{"a a b", "a b b"},
	{"kitten", "sitting"},
	{"héllo wörld", "hello world"},
	{"the cat sat on the mat", "the mat sat on the cat"},
	{"C++ tutorial", "c tutorial"},
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected float64
	}{
		{"both empty", "", "", 1},
		{"one empty", "", "something", 0},
		{"other empty", "something", "   ", 0},
		{"identical", "a b c", "A B C.", 1},
		{"three of four", "a b c", "a b c d", 0.75},
		{"disjoint", "a b", "c d", 0},
		{"duplicates collapse", "a a a b", "a b", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Jaccard(tt.a, tt.b))
		})
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected float64
	}{
		{"both empty", "", "", 1},
		{"one empty", "", "something", 0},
		{"identical", "sales data", "Sales  data!", 1},
		{"disjoint", "a b", "c d", 0},
		{"frequency matters", "a a b", "a b b", 0.8},
		{"reordered", "b a", "a b", 1},
		{"partial overlap", "a b", "a c", 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected float64
	}{
		{"both empty", "", "", 1},
		{"one empty", "", "abc", 0},
		{"identical after normalization", "Hello", "hello!", 1},
		{"kitten sitting", "kitten", "sitting", 1 - 3.0/7.0},
		{"rune level", "héllo", "hello", 0.8},
		{"completely different", "abc", "xyz", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Levenshtein(tt.a, tt.b), 1e-9)
		})
	}
}

func TestMetrics_Symmetric(t *testing.T) {
	for _, pair := range metricPairs {
		a, b := pair[0], pair[1]
		assert.Equal(t, Jaccard(a, b), Jaccard(b, a), "jaccard %q %q", a, b)
		assert.Equal(t, Cosine(a, b), Cosine(b, a), "cosine %q %q", a, b)
		assert.Equal(t, Levenshtein(a, b), Levenshtein(b, a), "levenshtein %q %q", a, b)
		assert.Equal(t, Similarity(a, b), Similarity(b, a))
	}
}

func TestMetrics_Range(t *testing.T) {
	for _, pair := range metricPairs {
		m := Similarity(pair[0], pair[1])
		for _, v := range []float64{m.Jaccard, m.Cosine, m.Levenshtein} {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestSimilarity_MatchesIndividualMetrics(t *testing.T) {
	a, b := "analyze sales data for Q3", "analyze sales data for Q3 performance"
	m := Similarity(a, b)

	assert.Equal(t, Jaccard(a, b), m.Jaccard)
	assert.Equal(t, Cosine(a, b), m.Cosine)
	assert.Equal(t, Levenshtein(a, b), m.Levenshtein)
	assert.InDelta(t, 5.0/6.0, m.Jaccard, 1e-9)
}
