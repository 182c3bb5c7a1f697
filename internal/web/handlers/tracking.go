package handlers

import (
	"context"
	"net/http"

	"github.com/kozaktomas/facetrack/internal/tracker"
)

// TrackingHandler controls the tracking worker
type TrackingHandler struct {
	tracker *tracker.Tracker
	// ctx outlives individual requests; the worker is bound to it.
	ctx context.Context
}

// NewTrackingHandler creates a new tracking handler. Workers started through
// it stop when ctx is cancelled.
func NewTrackingHandler(ctx context.Context, t *tracker.Tracker) *TrackingHandler {
	return &TrackingHandler{tracker: t, ctx: ctx}
}

// Start starts the worker. Starting twice is harmless.
func (h *TrackingHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.tracker.Start(h.ctx)
	respondJSON(w, http.StatusOK, h.tracker.Stats())
}

// Stop stops the worker and clears the local face list.
func (h *TrackingHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.tracker.Stop()
	respondJSON(w, http.StatusOK, h.tracker.Stats())
}

// Status reports the worker state and counters.
func (h *TrackingHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.tracker.Stats())
}
