// Package constants provides shared constants used across the codebase.
package constants

// Handler constants
const (
	// DefaultRecentEvents is the default number of journal events returned
	DefaultRecentEvents = 50

	// MaxRecentEvents caps the journal events endpoint
	MaxRecentEvents = 1000

	// MaxUploadSize is the maximum multipart body accepted for frames and stills
	MaxUploadSize = 20 << 20

	// MaxFramePixels caps the decoded width x height of frames and stills
	MaxFramePixels = 40_000_000
)

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100
)
