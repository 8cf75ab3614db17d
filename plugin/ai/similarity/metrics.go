package similarity

import (
	"math"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Metrics holds the individual metric values behind a composite score.
type Metrics struct {
	Jaccard     float64 `json:"jaccard"`
	Cosine      float64 `json:"cosine"`
	Levenshtein float64 `json:"levenshtein"`
}

// Similarity computes all three metrics for a and b.
func Similarity(a, b string) Metrics {
	return computeNormalized(Normalize(a), Normalize(b))
}

// Jaccard returns |A∩B| / |A∪B| over the token sets of a and b.
// Two empty queries are identical (1.0); one empty query shares nothing (0.0).
func Jaccard(a, b string) float64 {
	return jaccard(Tokenize(a), Tokenize(b))
}

// Cosine returns the cosine of the angle between the token frequency
// vectors of a and b. Both empty yields 1.0, one empty yields 0.0.
func Cosine(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1
	}
	return cosine(splitNormalized(na), splitNormalized(nb))
}

// Levenshtein returns 1 - distance/max(len(a), len(b)) using rune-level
// edit distance on the normalized strings.
func Levenshtein(a, b string) float64 {
	return levenshteinRatio(Normalize(a), Normalize(b))
}

// computeNormalized expects both inputs already normalized.
func computeNormalized(a, b string) Metrics {
	if a == b {
		// Covers the empty/empty convention and keeps identity exact;
		// the cosine of equal vectors can otherwise land one ulp below 1.
		return Metrics{Jaccard: 1, Cosine: 1, Levenshtein: 1}
	}

	tokensA, tokensB := splitNormalized(a), splitNormalized(b)
	return Metrics{
		Jaccard:     jaccard(tokensA, tokensB),
		Cosine:      cosine(tokensA, tokensB),
		Levenshtein: levenshteinRatio(a, b),
	}
}

func splitNormalized(s string) []string {
	if s == "" {
		return nil
	}
	tokens := make([]string, 0, 8)
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' {
			tokens = append(tokens, s[start:i])
			start = i + 1
		}
	}
	return append(tokens, s[start:])
}

func jaccard(tokensA, tokensB []string) float64 {
	if len(tokensA) == 0 && len(tokensB) == 0 {
		return 1
	}
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(tokensA))
	for _, t := range tokensA {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(tokensB))
	for _, t := range tokensB {
		setB[t] = struct{}{}
	}

	intersection := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection

	return float64(intersection) / float64(union)
}

func cosine(tokensA, tokensB []string) float64 {
	if len(tokensA) == 0 && len(tokensB) == 0 {
		return 1
	}
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	freqA := termFrequencies(tokensA)
	freqB := termFrequencies(tokensB)

	// Integer accumulation keeps the result independent of map order.
	var dot, normA, normB int
	for t, ca := range freqA {
		normA += ca * ca
		dot += ca * freqB[t]
	}
	for _, cb := range freqB {
		normB += cb * cb
	}
	if dot == 0 {
		return 0
	}

	return clamp(float64(dot) / (math.Sqrt(float64(normA)) * math.Sqrt(float64(normB))))
}

func termFrequencies(tokens []string) map[string]int {
	freq := make(map[string]int, len(tokens))
	for _, t := range tokens {
		freq[t]++
	}
	return freq
}

func levenshteinRatio(a, b string) float64 {
	lenA, lenB := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(lenA, lenB)
	if longest == 0 {
		return 1
	}

	distance := levenshtein.ComputeDistance(a, b)
	return clamp(1 - float64(distance)/float64(longest))
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
