// Package events defines tracking events and everything that moves them:
// the local broadcaster, sinks and the asynchronous dispatcher.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies a single processed frame.
type Kind string

const (
	FaceFound        Kind = "FACE_FOUND"
	MovedAway        Kind = "MOVED_AWAY"
	MultipleSubjects Kind = "MULTIPLE_SUBJECTS"
	UnknownSubject   Kind = "UNKNOWN_SUBJECT"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case FaceFound, MovedAway, MultipleSubjects, UnknownSubject:
		return true
	}
	return false
}

// RemoteType is the event type name used by the remote collector.
// The collector has no FACE_FOUND type; it is reported as MOVED_AWAY.
func (k Kind) RemoteType() string {
	if k == FaceFound {
		return string(MovedAway)
	}
	return string(k)
}

// TrackingEvent is the result of classifying one frame.
type TrackingEvent struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	// Faces is the number of faces the detector reported.
	Faces int `json:"faces"`
	// Identifier and Distance describe the best registry match when exactly
	// one face was encoded against a non-empty registry.
	Identifier string  `json:"identifier,omitempty"`
	Distance   float64 `json:"distance,omitempty"`
	// Embedding is the query embedding of an UnknownSubject frame.
	Embedding []float32 `json:"-"`
}

// NewEvent creates an event with a fresh ID.
func NewEvent(kind Kind, faces int, at time.Time) TrackingEvent {
	return TrackingEvent{
		ID:        uuid.NewString(),
		Kind:      kind,
		Timestamp: at.UTC(),
		Faces:     faces,
	}
}
