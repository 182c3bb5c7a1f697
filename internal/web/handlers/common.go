// Package handlers provides HTTP handlers for the tracking API.
// Handlers are grouped by resource:
//   - faces.go: enrollment and the registry (List, Enroll, Get, Sample, Delete)
//   - frames.go: frame intake (Submit, Classify)
//   - tracking.go: worker lifecycle (Start, Stop, Status)
//   - events.go: local event streams and the journal (Stream, WebSocket, Recent)
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// errInvalidMultipart is a shared error message for unparsable upload forms.
const errInvalidMultipart = "failed to parse multipart form"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondErrorCode sends an error response with a machine-readable code.
func respondErrorCode(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]string{"error": message, "code": code})
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
