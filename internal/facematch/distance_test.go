package facematch

import (
	"errors"
	"math"
	"testing"
)

func TestEuclideanDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"3-4-5 triangle", []float32{0, 0}, []float32{3, 4}, 5},
		{"negative components", []float32{-1, -1}, []float32{1, 1}, math.Sqrt(8)},
		{"empty vectors", []float32{}, []float32{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EuclideanDistance(tt.a, tt.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("EuclideanDistance(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestEuclideanDistanceSymmetric(t *testing.T) {
	a := []float32{0.5, -1.25, 3, 7}
	b := []float32{1, 2, -3, 0.125}

	ab, _ := EuclideanDistance(a, b)
	ba, _ := EuclideanDistance(b, a)
	if ab != ba {
		t.Errorf("distance not symmetric: d(a,b)=%v d(b,a)=%v", ab, ba)
	}
	if ab < 0 {
		t.Errorf("distance negative: %v", ab)
	}
}

func TestEuclideanDistanceDimensionMismatch(t *testing.T) {
	_, err := EuclideanDistance([]float32{1, 2}, []float32{1, 2, 3})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}
