package events

import (
	"context"
	"errors"
	"log"
)

// Sink receives forwarded tracking events.
type Sink interface {
	Emit(ctx context.Context, event TrackingEvent) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, event TrackingEvent) error

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, event TrackingEvent) error {
	return f(ctx, event)
}

// MultiSink emits to every sink in order. All sinks are attempted; the
// errors are joined.
type MultiSink []Sink

// Emit forwards event to each sink.
func (m MultiSink) Emit(ctx context.Context, event TrackingEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes forwarded events to the standard logger.
type LogSink struct{}

// Emit logs event.
func (LogSink) Emit(_ context.Context, event TrackingEvent) error {
	log.Printf("Tracking event %s: %s (faces=%d)", event.ID, event.Kind, event.Faces)
	return nil
}
