package tracker

import (
	"sync"

	"github.com/kozaktomas/facetrack/internal/events"
)

// Dedup decides which classified events reach the remote sink.
// An event is forwarded only when it is not FaceFound and differs from the
// last forwarded kind. FaceFound is therefore never forwarded.
type Dedup struct {
	mu   sync.Mutex
	last events.Kind
}

// NewDedup starts with FaceFound as the last forwarded kind.
func NewDedup() *Dedup {
	return &Dedup{last: events.FaceFound}
}

// ShouldForward reports whether kind is forwarded and records it if so.
func (d *Dedup) ShouldForward(kind events.Kind) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if kind == events.FaceFound || kind == d.last {
		return false
	}
	d.last = kind
	return true
}

// Last returns the last forwarded kind.
func (d *Dedup) Last() events.Kind {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}
