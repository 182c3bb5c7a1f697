package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/facetrack/internal/tracker"
)

func TestTrackingHandler_Lifecycle(t *testing.T) {
	tr := newTestTracker(t)
	enroll(t, NewFacesHandler(tr), "alice", red)
	handler := NewTrackingHandler(context.Background(), tr)

	status := func(call http.HandlerFunc, method string) tracker.Stats {
		t.Helper()
		recorder := httptest.NewRecorder()
		call(recorder, httptest.NewRequest(method, "/api/v1/tracking", nil))
		assertStatusCode(t, recorder, http.StatusOK)
		var stats tracker.Stats
		parseJSONResponse(t, recorder, &stats)
		return stats
	}

	if s := status(handler.Status, http.MethodGet); s.Running {
		t.Error("expected tracker to start stopped")
	}
	if s := status(handler.Start, http.MethodPost); !s.Running {
		t.Error("expected tracker to be running after start")
	}
	// Starting twice is a no-op
	if s := status(handler.Start, http.MethodPost); !s.Running {
		t.Error("expected tracker to still be running")
	}

	s := status(handler.Stop, http.MethodPost)
	if s.Running {
		t.Error("expected tracker to be stopped")
	}
	if s.Enrolled != 1 {
		t.Errorf("expected registry to survive stop, got %d enrolled", s.Enrolled)
	}
	if len(tr.Faces()) != 0 {
		t.Errorf("expected local face list to be cleared, got %d", len(tr.Faces()))
	}
}

func TestTrackingHandler_StopsWithContext(t *testing.T) {
	tr := newTestTracker(t)
	ctx, cancel := context.WithCancel(context.Background())
	handler := NewTrackingHandler(ctx, tr)

	recorder := httptest.NewRecorder()
	handler.Start(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/tracking/start", nil))
	assertStatusCode(t, recorder, http.StatusOK)

	// The request context is gone but the worker keeps running
	if !tr.Running() {
		t.Fatal("expected worker to outlive the request")
	}
	cancel()
}
