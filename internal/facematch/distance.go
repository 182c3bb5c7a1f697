package facematch

import (
	"errors"
	"math"
)

// ErrDimensionMismatch is returned when two embeddings have different lengths.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// EuclideanDistance returns the L2 norm of a-b.
// Accumulation happens in float64 so 192-d float32 vectors do not lose precision.
func EuclideanDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}

	return math.Sqrt(sum), nil
}
