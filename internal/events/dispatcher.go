package events

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// DispatcherStats counts delivery outcomes.
type DispatcherStats struct {
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
}

// Dispatcher delivers events to a Sink on its own goroutine.
// Enqueue never blocks the caller and delivery errors are only logged.
type Dispatcher struct {
	sink    Sink
	queue   chan TrackingEvent
	timeout time.Duration
	done    chan struct{}

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool

	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// NewDispatcher starts a dispatcher with a bounded queue.
func NewDispatcher(sink Sink, queueSize int, timeout time.Duration) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	d := &Dispatcher{
		sink:    sink,
		queue:   make(chan TrackingEvent, queueSize),
		timeout: timeout,
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for event := range d.queue {
		d.deliver(event)
	}
}

func (d *Dispatcher) deliver(event TrackingEvent) {
	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if err := d.sink.Emit(ctx, event); err != nil {
		d.failed.Add(1)
		log.Printf("Event sink: failed to deliver %s %s: %v", event.Kind, event.ID, err)
		return
	}
	d.delivered.Add(1)
}

// Enqueue hands event to the delivery goroutine. It returns false when the
// queue is full or the dispatcher is closed.
func (d *Dispatcher) Enqueue(event TrackingEvent) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped.Add(1)
		return false
	}

	select {
	case d.queue <- event:
		return true
	default:
		d.dropped.Add(1)
		log.Printf("Event sink: queue full, dropping %s %s", event.Kind, event.ID)
		return false
	}
}

// Emit implements Sink by enqueueing; it never reports delivery errors.
func (d *Dispatcher) Emit(_ context.Context, event TrackingEvent) error {
	d.Enqueue(event)
	return nil
}

// Stats returns delivery counters.
func (d *Dispatcher) Stats() DispatcherStats {
	return DispatcherStats{
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
		Dropped:   d.dropped.Load(),
	}
}

// Close stops accepting events and waits until queued events are delivered
// or ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
