package database

import "github.com/kozaktomas/facetrack/internal/constants"

// Journal read limits
const (
	// DefaultRecentLimit is used when a caller asks for zero events.
	DefaultRecentLimit = constants.DefaultRecentEvents

	// MaxRecentLimit caps a single journal read.
	MaxRecentLimit = constants.MaxRecentEvents
)

// ClampLimit maps a requested read size into [1, MaxRecentLimit].
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		return MaxRecentLimit
	}
	return limit
}
