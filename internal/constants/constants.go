// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Face model constants
const (
	// InputSize is the edge length of the square encoder input in pixels
	InputSize = 112

	// OutputSize is the length of the embedding vector
	OutputSize = 192

	// ImageMean is subtracted from each channel byte before scaling
	ImageMean = 128.0

	// ImageStd divides each mean-centred channel byte
	ImageStd = 128.0
)

// Face matching constants
const (
	// MatchThreshold is the Euclidean distance below which a face counts as enrolled
	MatchThreshold = 1.1

	// IoUThreshold is the overlap at which two detector boxes are treated as one face
	IoUThreshold = 0.5

	// MinDetectionScore drops low confidence detector boxes
	MinDetectionScore = 0.5
)

// Tracking constants
const (
	// MinFrameInterval is the minimum time between two processed frames
	MinFrameInterval = 10 * time.Millisecond

	// FrameTimeout bounds detection and encoding of a single frame
	FrameTimeout = 5 * time.Second
)

// Registry index constants
const (
	// HNSWMinEntries is the registry size at which the HNSW candidate index kicks in
	HNSWMinEntries = 1000

	// HNSWCandidates is the number of HNSW candidates re-ranked exactly
	HNSWCandidates = 8
)

// Sink constants
const (
	// SinkQueueSize is the number of forwarded events buffered for delivery
	SinkQueueSize = 64

	// SinkTimeout bounds a single delivery to the remote collector
	SinkTimeout = 10 * time.Second
)
