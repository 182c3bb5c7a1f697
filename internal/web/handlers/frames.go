package handlers

import (
	"errors"
	"net/http"

	"github.com/kozaktomas/facetrack/internal/tracker"
)

// FramesHandler accepts camera frames
type FramesHandler struct {
	tracker  *tracker.Tracker
	mirrored bool
}

// NewFramesHandler creates a new frames handler. Frames without an explicit
// mirrored flag use mirrored.
func NewFramesHandler(t *tracker.Tracker, mirrored bool) *FramesHandler {
	return &FramesHandler{tracker: t, mirrored: mirrored}
}

// Submit queues a frame for the tracking worker. Only the latest pending
// frame is kept; the response reports whether this one was accepted.
func (h *FramesHandler) Submit(w http.ResponseWriter, r *http.Request) {
	frame, err := parseFrame(r, h.mirrored)
	if err != nil {
		respondError(w, uploadStatus(err), err.Error())
		return
	}

	accepted, err := h.tracker.Submit(frame)
	if errors.Is(err, tracker.ErrNotRunning) {
		respondError(w, http.StatusConflict, "tracking is not running")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to submit frame")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]bool{"accepted": accepted})
}

// Classify processes a frame synchronously and returns its event.
// The event is also published and forwarded like any worker event.
func (h *FramesHandler) Classify(w http.ResponseWriter, r *http.Request) {
	frame, err := parseFrame(r, h.mirrored)
	if err != nil {
		respondError(w, uploadStatus(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, h.tracker.ProcessFrame(r.Context(), frame))
}
