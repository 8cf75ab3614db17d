package similarity

import "github.com/pkg/errors"

var (
	// ErrInvalidInput is returned when a required input is absent, e.g. a nil
	// text accessor or a null query decoded from JSON.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidThreshold is returned when a threshold lies outside [0, 1].
	ErrInvalidThreshold = errors.New("invalid threshold")

	// ErrInvalidWeights is returned when metric weights are negative or do
	// not sum to a positive number.
	ErrInvalidWeights = errors.New("invalid weights")
)
