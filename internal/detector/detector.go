// Package detector finds face bounding boxes in camera frames.
package detector

import (
	"context"

	"github.com/kozaktomas/facetrack/internal/facematch"
	"github.com/kozaktomas/facetrack/internal/sample"
)

// Detector returns the face boxes of a frame in the upright frame's
// coordinate space (after the rotation hint is applied).
type Detector interface {
	Detect(ctx context.Context, frame sample.Frame) ([]facematch.BoundingBox, error)
}

// Static always reports the same boxes.
type Static []facematch.BoundingBox

// Detect returns a copy of the configured boxes.
func (s Static) Detect(context.Context, sample.Frame) ([]facematch.BoundingBox, error) {
	return append([]facematch.BoundingBox(nil), s...), nil
}

// Func adapts a function to Detector.
type Func func(ctx context.Context, frame sample.Frame) ([]facematch.BoundingBox, error)

// Detect calls f.
func (f Func) Detect(ctx context.Context, frame sample.Frame) ([]facematch.BoundingBox, error) {
	return f(ctx, frame)
}
