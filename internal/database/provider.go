package database

import (
	"context"
	"fmt"
	"sync"
)

var (
	eventStoreMu sync.RWMutex
	eventStore   EventWriter
	backendName  string
)

// RegisterEventStore registers the journal backend.
// This is called by the postgres and mariadb packages to avoid import cycles.
func RegisterEventStore(name string, store EventWriter) {
	eventStoreMu.Lock()
	defer eventStoreMu.Unlock()
	eventStore = store
	backendName = name
}

// IsInitialized returns whether a journal backend has been registered.
func IsInitialized() bool {
	eventStoreMu.RLock()
	defer eventStoreMu.RUnlock()
	return eventStore != nil
}

// Backend returns the name of the registered backend, or "" if none.
func Backend() string {
	eventStoreMu.RLock()
	defer eventStoreMu.RUnlock()
	return backendName
}

// GetEventReader returns an EventReader from the registered backend
func GetEventReader(ctx context.Context) (EventReader, error) {
	return GetEventWriter(ctx)
}

// GetEventWriter returns an EventWriter from the registered backend
func GetEventWriter(ctx context.Context) (EventWriter, error) {
	eventStoreMu.RLock()
	defer eventStoreMu.RUnlock()
	if eventStore == nil {
		return nil, fmt.Errorf("event journal not initialized: DATABASE_URL or MARIADB_DSN is required")
	}
	return eventStore, nil
}
