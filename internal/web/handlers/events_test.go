package handlers

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kozaktomas/facetrack/internal/database"
	"github.com/kozaktomas/facetrack/internal/database/mock"
	"github.com/kozaktomas/facetrack/internal/events"
	"github.com/kozaktomas/facetrack/internal/sample"
)

type recentResponse struct {
	Events []events.TrackingEvent `json:"events"`
	Count  int                    `json:"count"`
}

func TestEventsHandler_Recent_NoJournal(t *testing.T) {
	handler := NewEventsHandler(newTestTracker(t), nil, nil)

	recorder := httptest.NewRecorder()
	handler.Recent(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/events/recent", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp recentResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Events == nil || resp.Count != 0 {
		t.Errorf("expected empty list, got %+v", resp)
	}
}

func TestEventsHandler_Recent(t *testing.T) {
	store := mock.NewMockEventStore()
	journal := database.NewJournal(store)
	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	for i, kind := range []events.Kind{events.MovedAway, events.UnknownSubject, events.MultipleSubjects} {
		if err := journal.Emit(context.Background(), events.NewEvent(kind, i, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("failed to seed journal: %v", err)
		}
	}
	handler := NewEventsHandler(newTestTracker(t), journal, nil)

	recorder := httptest.NewRecorder()
	handler.Recent(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/events/recent?limit=2", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp recentResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Count != 2 {
		t.Fatalf("expected 2 events, got %d", resp.Count)
	}
	if resp.Events[0].Kind != events.MultipleSubjects || resp.Events[1].Kind != events.UnknownSubject {
		t.Errorf("expected newest first, got %s, %s", resp.Events[0].Kind, resp.Events[1].Kind)
	}
}

func TestEventsHandler_Recent_Errors(t *testing.T) {
	store := mock.NewMockEventStore()
	handler := NewEventsHandler(newTestTracker(t), database.NewJournal(store), nil)

	for _, limit := range []string{"0", "-1", "many"} {
		recorder := httptest.NewRecorder()
		handler.Recent(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/events/recent?limit="+limit, nil))
		assertStatusCode(t, recorder, http.StatusBadRequest)
	}

	store.RecentError = errors.New("connection refused")
	recorder := httptest.NewRecorder()
	handler.Recent(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/events/recent", nil))
	assertStatusCode(t, recorder, http.StatusInternalServerError)
	assertJSONError(t, recorder, "failed to read events")
}

func TestEventsHandler_Stream(t *testing.T) {
	tr := newTestTracker(t)
	handler := NewEventsHandler(tr, nil, nil)

	server := httptest.NewServer(http.HandlerFunc(handler.Stream))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected text/event-stream, got %s", ct)
	}

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		t.Helper()
		var name, data string
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("stream ended: %v", err)
			}
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "" && name != "":
				return name, data
			}
		}
	}

	if name, _ := readEvent(); name != "status" {
		t.Fatalf("expected initial status event, got %s", name)
	}

	tr.ProcessFrame(context.Background(), sample.Frame{Image: mustDecode(t, solidPNG(t, white))})

	name, data := readEvent()
	if name != string(events.MovedAway) {
		t.Errorf("expected MOVED_AWAY event, got %s", name)
	}
	if !strings.Contains(data, `"kind":"MOVED_AWAY"`) {
		t.Errorf("unexpected data %s", data)
	}
}

func TestEventsHandler_WebSocket(t *testing.T) {
	tr := newTestTracker(t)
	handler := NewEventsHandler(tr, nil, nil)

	server := httptest.NewServer(http.HandlerFunc(handler.WebSocket))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg wsMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("failed to read status: %v", err)
	}
	if msg.Type != "status" || msg.Stats == nil {
		t.Fatalf("expected status message, got %+v", msg)
	}

	tr.ProcessFrame(context.Background(), sample.Frame{Image: mustDecode(t, solidPNG(t, green))})

	msg = wsMessage{}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if msg.Type != "event" || msg.Event == nil {
		t.Fatalf("expected event message, got %+v", msg)
	}
	if msg.Event.Kind != events.MultipleSubjects || msg.Event.Faces != 2 {
		t.Errorf("unexpected event %+v", msg.Event)
	}
}
