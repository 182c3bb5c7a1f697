package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kozaktomas/facetrack/internal/events"
)

// Journal is an events.Sink that records every forwarded event.
type Journal struct {
	store EventWriter
}

// NewJournal wraps store as a sink.
func NewJournal(store EventWriter) *Journal {
	return &Journal{store: store}
}

// Emit stores event. Events without an ID get a fresh one.
func (j *Journal) Emit(ctx context.Context, event events.TrackingEvent) error {
	row := FromEvent(event)
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if err := j.store.SaveEvent(ctx, row); err != nil {
		return fmt.Errorf("journal event %s: %w", row.ID, err)
	}
	return nil
}

// Recent returns the newest events as tracking events.
func (j *Journal) Recent(ctx context.Context, limit int) ([]events.TrackingEvent, error) {
	rows, err := j.store.RecentEvents(ctx, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	out := make([]events.TrackingEvent, len(rows))
	for i, r := range rows {
		out[i] = r.Event()
	}
	return out, nil
}
