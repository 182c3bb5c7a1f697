package tracker

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"time"

	"github.com/kozaktomas/facetrack/internal/facematch"
	"github.com/kozaktomas/facetrack/internal/registry"
	"github.com/kozaktomas/facetrack/internal/sample"
)

var (
	// ErrMovedAway is returned by AddFace when the still contains no face.
	ErrMovedAway = errors.New("no face found")
	// ErrMultipleSubjects is returned by AddFace when the still contains more than one face.
	ErrMultipleSubjects = errors.New("more than one face found")
)

// EnrolledSample is a locally kept enrollment sample.
type EnrolledSample struct {
	Identifier string      `json:"identifier"`
	Sample     *image.RGBA `json:"-"`
	EnrolledAt time.Time   `json:"enrolled_at"`
}

// AddFace detects the single face in img, encodes it and enrolls it under
// identifier. The prepared sample is returned on success.
func (t *Tracker) AddFace(ctx context.Context, identifier string, img image.Image) (*image.RGBA, error) {
	id := facematch.NormalizeIdentifier(identifier)
	if id == "" {
		return nil, registry.ErrInvalidIdentifier
	}
	if img == nil {
		return nil, errors.New("no image")
	}

	frame := sample.Frame{Image: img}

	boxes, err := t.detector.Detect(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("failed to detect faces: %w", err)
	}
	switch {
	case len(boxes) == 0:
		return nil, ErrMovedAway
	case len(boxes) > 1:
		return nil, fmt.Errorf("%w: %d faces", ErrMultipleSubjects, len(boxes))
	}

	s, err := t.pipeline.Prepare(frame, boxes[0])
	if err != nil {
		return nil, fmt.Errorf("failed to prepare sample: %w", err)
	}

	embedding, err := t.encoder.Encode(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sample: %w", err)
	}

	if err := t.registry.Enroll(id, embedding); err != nil {
		return nil, fmt.Errorf("failed to enroll %q: %w", id, err)
	}

	t.facesMu.Lock()
	t.faces = removeSample(t.faces, id)
	t.faces = append(t.faces, EnrolledSample{Identifier: id, Sample: s, EnrolledAt: t.opts.Now().UTC()})
	t.facesMu.Unlock()

	log.Printf("Tracker: enrolled %q (%d faces registered)", id, t.registry.Len())
	return s, nil
}

// GetFace returns the registry entry for identifier.
func (t *Tracker) GetFace(identifier string) (registry.EnrolledFace, bool) {
	return t.registry.Get(identifier)
}

// RemoveFace removes identifier from the registry and the local face list.
func (t *Tracker) RemoveFace(identifier string) {
	id := facematch.NormalizeIdentifier(identifier)
	t.registry.Remove(id)

	t.facesMu.Lock()
	t.faces = removeSample(t.faces, id)
	t.facesMu.Unlock()
}

// Sample returns the local enrollment sample for identifier.
func (t *Tracker) Sample(identifier string) (EnrolledSample, bool) {
	id := facematch.NormalizeIdentifier(identifier)

	t.facesMu.RLock()
	defer t.facesMu.RUnlock()
	for _, f := range t.faces {
		if f.Identifier == id {
			return f, true
		}
	}
	return EnrolledSample{}, false
}

// Faces returns the local face list in enrollment order.
func (t *Tracker) Faces() []EnrolledSample {
	t.facesMu.RLock()
	defer t.facesMu.RUnlock()
	return append([]EnrolledSample(nil), t.faces...)
}

func removeSample(faces []EnrolledSample, id string) []EnrolledSample {
	for i, f := range faces {
		if f.Identifier == id {
			return append(faces[:i], faces[i+1:]...)
		}
	}
	return faces
}
