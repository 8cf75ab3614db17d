package similarity

import (
	"math"

	"github.com/pkg/errors"
)

// Defaults used by DefaultConfig.
const (
	DefaultThreshold         = 0.75
	DefaultJaccardWeight     = 0.3
	DefaultCosineWeight      = 0.4
	DefaultLevenshteinWeight = 0.3
)

// Weights sets the contribution of each metric to the composite score.
// Weights need not sum to 1; the composite is a weighted average.
type Weights struct {
	Jaccard     float64 `json:"jaccard" mapstructure:"jaccard"`
	Cosine      float64 `json:"cosine" mapstructure:"cosine"`
	Levenshtein float64 `json:"levenshtein" mapstructure:"levenshtein"`
}

// DefaultWeights returns 0.3 Jaccard, 0.4 Cosine, 0.3 Levenshtein.
func DefaultWeights() Weights {
	return Weights{
		Jaccard:     DefaultJaccardWeight,
		Cosine:      DefaultCosineWeight,
		Levenshtein: DefaultLevenshteinWeight,
	}
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	return w.Jaccard + w.Cosine + w.Levenshtein
}

// Validate rejects negative or non-finite weights and a total that is not
// a finite positive number.
func (w Weights) Validate() error {
	named := []struct {
		name  string
		value float64
	}{
		{"jaccard", w.Jaccard},
		{"cosine", w.Cosine},
		{"levenshtein", w.Levenshtein},
	}
	for _, n := range named {
		if math.IsNaN(n.value) || math.IsInf(n.value, 0) || n.value < 0 {
			return errors.Wrapf(ErrInvalidWeights, "%s weight %v must be a finite non-negative number", n.name, n.value)
		}
	}
	if sum := w.Sum(); sum <= 0 || math.IsInf(sum, 0) {
		return errors.Wrap(ErrInvalidWeights, "weights must sum to a finite positive number")
	}
	return nil
}

// Config configures a Matcher.
type Config struct {
	Threshold float64 `json:"threshold" mapstructure:"threshold"` // match iff score >= Threshold (default: 0.75)
	Weights   Weights `json:"weights" mapstructure:"weights"`
}

// DefaultConfig returns threshold 0.75 with DefaultWeights.
func DefaultConfig() Config {
	return Config{
		Threshold: DefaultThreshold,
		Weights:   DefaultWeights(),
	}
}

// Validate checks the threshold and weights.
func (c Config) Validate() error {
	if err := ValidateThreshold(c.Threshold); err != nil {
		return err
	}
	return c.Weights.Validate()
}

// ValidateThreshold rejects thresholds outside [0, 1].
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return errors.Wrapf(ErrInvalidThreshold, "threshold %v outside [0, 1]", threshold)
	}
	return nil
}
