// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/kozaktomas/facetrack/internal/database"
)

// MockEventStore is an in-memory implementation of database.EventWriter
type MockEventStore struct {
	mu     sync.RWMutex
	events []database.StoredEvent
	ids    map[string]struct{}

	// Error injection
	SaveError   error
	RecentError error
	CountError  error
}

// NewMockEventStore creates a new empty mock event store
func NewMockEventStore() *MockEventStore {
	return &MockEventStore{ids: make(map[string]struct{})}
}

// SaveEvent stores an event, ignoring duplicate IDs
func (m *MockEventStore) SaveEvent(ctx context.Context, event database.StoredEvent) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ids[event.ID]; ok {
		return nil
	}
	m.ids[event.ID] = struct{}{}
	m.events = append(m.events, event)
	return nil
}

// RecentEvents returns up to limit events, newest first
func (m *MockEventStore) RecentEvents(ctx context.Context, limit int) ([]database.StoredEvent, error) {
	if m.RecentError != nil {
		return nil, m.RecentError
	}
	m.mu.RLock()
	out := make([]database.StoredEvent, len(m.events))
	copy(out, m.events)
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	limit = database.ClampLimit(limit)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountEvents returns the number of stored events
func (m *MockEventStore) CountEvents(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events), nil
}

// Events returns a copy of everything stored, in insertion order
func (m *MockEventStore) Events() []database.StoredEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.StoredEvent, len(m.events))
	copy(out, m.events)
	return out
}

var _ database.EventWriter = (*MockEventStore)(nil)
