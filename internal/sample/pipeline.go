// Package sample turns a detected face region of a camera frame into the
// fixed-size square image the encoder consumes.
package sample

import (
	"errors"
	"fmt"
	"image"

	"github.com/kozaktomas/facetrack/internal/facematch"
)

// ErrInvalidBoundingBox is returned for boxes with non-positive width or height.
var ErrInvalidBoundingBox = errors.New("invalid bounding box")

// Box is a face bounding box in the upright frame's pixel space.
type Box = facematch.BoundingBox

// Frame is a raw camera frame plus the rotation needed to make it upright.
type Frame struct {
	Image           image.Image
	RotationDegrees int
	// Mirrored is set for front cameras whose preview is horizontally flipped.
	Mirrored bool
}

// Upright applies the frame's rotation hint (and mirroring) and returns the
// raster that detectors and the pipeline work in.
func Upright(frame Frame) *image.RGBA {
	img := Rotate(frame.Image, frame.RotationDegrees)
	if frame.Mirrored {
		img = Mirror(img)
	}
	return img
}

// Pipeline prepares encoder samples of Size x Size pixels.
type Pipeline struct {
	size int
}

// NewPipeline creates a pipeline producing size x size samples.
func NewPipeline(size int) *Pipeline {
	return &Pipeline{size: size}
}

// Size returns the sample edge length.
func (p *Pipeline) Size() int {
	return p.size
}

// Prepare rotates the frame upright, crops box with a white background and
// resizes the crop to the sample size.
func (p *Pipeline) Prepare(frame Frame, box Box) (*image.RGBA, error) {
	if !box.Valid() {
		return nil, invalidBox(box)
	}
	if frame.Image == nil {
		return nil, errors.New("frame has no image")
	}

	crop, err := Crop(Upright(frame), box)
	if err != nil {
		return nil, err
	}
	return Resize(crop, p.size, p.size), nil
}

func invalidBox(box Box) error {
	return fmt.Errorf("%w: %dx%d at (%d,%d)", ErrInvalidBoundingBox, box.Width, box.Height, box.Left, box.Top)
}
