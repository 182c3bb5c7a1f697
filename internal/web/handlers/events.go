package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kozaktomas/facetrack/internal/constants"
	"github.com/kozaktomas/facetrack/internal/database"
	"github.com/kozaktomas/facetrack/internal/events"
	"github.com/kozaktomas/facetrack/internal/tracker"
	"github.com/kozaktomas/facetrack/internal/web/middleware"
)

const (
	sseKeepAlive = 30 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsWriteWait  = 10 * time.Second
)

// EventsHandler streams tracking events
type EventsHandler struct {
	tracker  *tracker.Tracker
	journal  *database.Journal
	upgrader websocket.Upgrader
}

// NewEventsHandler creates a new events handler. journal may be nil; a nil
// origins policy only accepts same-host and loopback WebSocket clients.
func NewEventsHandler(t *tracker.Tracker, journal *database.Journal, origins *middleware.OriginPolicy) *EventsHandler {
	return &EventsHandler{
		tracker: t,
		journal: journal,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.CheckOrigin,
		},
	}
}

// sendSSEEvent sends a Server-Sent Event
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	jsonData, _ := json.Marshal(data)
	_, _ = io.WriteString(w, "event: "+eventType+"\n")
	_, _ = io.WriteString(w, "data: ")
	_, _ = io.Copy(w, bytes.NewReader(jsonData))
	_, _ = io.WriteString(w, "\n\n")
	flusher.Flush()
}

// Stream sends every classified event as an SSE event named after its kind.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	eventCh, unsubscribe := h.tracker.Subscribe()
	defer unsubscribe()

	sendSSEEvent(w, flusher, "status", h.tracker.Stats())

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			flusher.Flush()
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, string(event.Kind), event)
		}
	}
}

// wsMessage is the envelope written to WebSocket clients.
type wsMessage struct {
	Type  string                `json:"type"`
	Event *events.TrackingEvent `json:"event,omitempty"`
	Stats *tracker.Stats        `json:"stats,omitempty"`
}

// WebSocket upgrades the connection and pushes every classified event.
// Client messages are read only to process control frames.
func (h *EventsHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	eventCh, unsubscribe := h.tracker.Subscribe()
	done := make(chan struct{})

	go wsReadPump(conn, done)
	wsWritePump(conn, eventCh, done, h.tracker.Stats())

	unsubscribe()
	conn.Close()
}

func wsReadPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket read error: %v", err)
			}
			return
		}
	}
}

func wsWritePump(conn *websocket.Conn, eventCh <-chan events.TrackingEvent, done <-chan struct{}, stats tracker.Stats) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(wsMessage{Type: "status", Stats: &stats}); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case event, ok := <-eventCh:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				return
			}
			if err := conn.WriteJSON(wsMessage{Type: "event", Event: &event}); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Recent returns journaled events, newest first. Without a journal the
// list is empty.
func (h *EventsHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := constants.DefaultRecentEvents
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, constants.MaxRecentEvents)
	}

	list := []events.TrackingEvent{}
	if h.journal != nil {
		recent, err := h.journal.Recent(r.Context(), limit)
		if err != nil {
			log.Printf("Reading event journal failed: %v", err)
			respondError(w, http.StatusInternalServerError, "failed to read events")
			return
		}
		list = append(list, recent...)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"events": list,
		"count":  len(list),
	})
}
