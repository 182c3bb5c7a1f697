package events

import (
	"sync"

	"github.com/kozaktomas/facetrack/internal/constants"
)

// Broadcaster fans tracking events out to any number of listeners.
// Publishing never blocks: a listener whose buffer is full misses the event.
type Broadcaster struct {
	listeners []chan TrackingEvent
	closed    bool
	mu        sync.RWMutex
}

// NewBroadcaster creates a broadcaster without listeners.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// AddListener registers a new listener channel.
// On a closed broadcaster the returned channel is already closed.
func (b *Broadcaster) AddListener() chan TrackingEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan TrackingEvent, constants.EventChannelBuffer)
	if b.closed {
		close(ch)
		return ch
	}
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener unregisters and closes ch.
func (b *Broadcaster) RemoveListener(ch chan TrackingEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// Publish sends event to all listeners.
func (b *Broadcaster) Publish(event TrackingEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// ListenerCount returns the number of registered listeners.
func (b *Broadcaster) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// Close closes every listener channel; later listeners get a closed channel.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, listener := range b.listeners {
		close(listener)
	}
	b.listeners = nil
}
