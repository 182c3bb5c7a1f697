package database

import (
	"time"

	"github.com/kozaktomas/facetrack/internal/events"
)

// StoredEvent represents a forwarded tracking event stored in the journal
type StoredEvent struct {
	ID         string
	Kind       events.Kind
	RemoteType string // type name reported to the remote collector
	Identifier string // best match, empty when nothing was compared
	Distance   float64
	FaceCount  int
	Embedding  []float32 // query embedding, only kept for UNKNOWN_SUBJECT
	CreatedAt  time.Time
}

// FromEvent converts a tracking event into a journal row.
func FromEvent(e events.TrackingEvent) StoredEvent {
	s := StoredEvent{
		ID:         e.ID,
		Kind:       e.Kind,
		RemoteType: e.Kind.RemoteType(),
		Identifier: e.Identifier,
		Distance:   e.Distance,
		FaceCount:  e.Faces,
		CreatedAt:  e.Timestamp.UTC(),
	}
	if e.Kind == events.UnknownSubject && len(e.Embedding) > 0 {
		s.Embedding = append([]float32(nil), e.Embedding...)
	}
	return s
}

// Event converts the row back into a tracking event.
func (s StoredEvent) Event() events.TrackingEvent {
	return events.TrackingEvent{
		ID:         s.ID,
		Kind:       s.Kind,
		Timestamp:  s.CreatedAt.UTC(),
		Faces:      s.FaceCount,
		Identifier: s.Identifier,
		Distance:   s.Distance,
		Embedding:  s.Embedding,
	}
}
