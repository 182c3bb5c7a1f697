package database

import (
	"context"
)

// EventReader provides read-only access to the event journal
type EventReader interface {
	// RecentEvents returns up to limit events, newest first
	RecentEvents(ctx context.Context, limit int) ([]StoredEvent, error)
	// CountEvents returns the total number of journaled events
	CountEvents(ctx context.Context) (int, error)
}

// EventWriter provides write access to the event journal
type EventWriter interface {
	EventReader

	// SaveEvent stores one event. Saving an ID twice keeps the first row.
	SaveEvent(ctx context.Context, event StoredEvent) error
}
