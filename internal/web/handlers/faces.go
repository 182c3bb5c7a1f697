package handlers

import (
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/facetrack/internal/constants"
	"github.com/kozaktomas/facetrack/internal/facematch"
	"github.com/kozaktomas/facetrack/internal/registry"
	"github.com/kozaktomas/facetrack/internal/sample"
	"github.com/kozaktomas/facetrack/internal/tracker"
)

// FacesHandler handles enrollment endpoints
type FacesHandler struct {
	tracker *tracker.Tracker
}

// NewFacesHandler creates a new faces handler
func NewFacesHandler(t *tracker.Tracker) *FacesHandler {
	return &FacesHandler{tracker: t}
}

// FaceResponse describes one enrolled face.
type FaceResponse struct {
	Identifier string     `json:"identifier"`
	Dimension  int        `json:"dimension"`
	HasSample  bool       `json:"has_sample"`
	EnrolledAt *time.Time `json:"enrolled_at,omitempty"`
}

// EnrollResponse is returned after a successful enrollment.
type EnrollResponse struct {
	Identifier string `json:"identifier"`
	Sample     string `json:"sample"` // base64 PNG
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

func (h *FacesHandler) describe(face registry.EnrolledFace) FaceResponse {
	resp := FaceResponse{
		Identifier: face.Identifier,
		Dimension:  len(face.Embedding),
	}
	if s, ok := h.tracker.Sample(face.Identifier); ok {
		at := s.EnrolledAt
		resp.HasSample = true
		resp.EnrolledAt = &at
	}
	return resp
}

// identifierParam returns the unescaped {identifier} path segment.
func identifierParam(r *http.Request) string {
	raw := chi.URLParam(r, "identifier")
	if id, err := url.PathUnescape(raw); err == nil {
		return id
	}
	return raw
}

// List returns all enrolled faces in enrollment order
func (h *FacesHandler) List(w http.ResponseWriter, r *http.Request) {
	all := h.tracker.Registry().All()
	faces := make([]FaceResponse, 0, len(all))
	for _, f := range all {
		faces = append(faces, h.describe(f))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"faces": faces,
		"count": len(faces),
	})
}

// Enroll detects the single face in the uploaded still and enrolls it
func (h *FacesHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidMultipart)
		return
	}

	identifier := r.FormValue("identifier")
	if identifier == "" {
		respondError(w, http.StatusBadRequest, "identifier is required")
		return
	}

	img, err := readStill(r, "image")
	if err != nil {
		respondError(w, uploadStatus(err), err.Error())
		return
	}

	s, err := h.tracker.AddFace(r.Context(), identifier, img)
	switch {
	case errors.Is(err, tracker.ErrMovedAway):
		respondErrorCode(w, http.StatusUnprocessableEntity, "moved_away", "no face found in image")
		return
	case errors.Is(err, tracker.ErrMultipleSubjects):
		respondErrorCode(w, http.StatusUnprocessableEntity, "multiple_subjects", "more than one face found in image")
		return
	case errors.Is(err, registry.ErrInvalidIdentifier):
		respondError(w, http.StatusBadRequest, "invalid identifier")
		return
	case err != nil:
		log.Printf("Enroll %q failed: %v", sanitizeForLog(identifier), err)
		respondError(w, http.StatusInternalServerError, "failed to enroll face")
		return
	}

	data, err := sample.EncodePNG(s)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to encode sample")
		return
	}

	respondJSON(w, http.StatusCreated, EnrollResponse{
		Identifier: facematch.NormalizeIdentifier(identifier),
		Sample:     base64.StdEncoding.EncodeToString(data),
		Width:      s.Bounds().Dx(),
		Height:     s.Bounds().Dy(),
	})
}

// Get returns one enrolled face
func (h *FacesHandler) Get(w http.ResponseWriter, r *http.Request) {
	face, ok := h.tracker.GetFace(identifierParam(r))
	if !ok {
		respondError(w, http.StatusNotFound, "face not found")
		return
	}
	respondJSON(w, http.StatusOK, h.describe(face))
}

// Sample serves the enrollment sample as PNG
func (h *FacesHandler) Sample(w http.ResponseWriter, r *http.Request) {
	s, ok := h.tracker.Sample(identifierParam(r))
	if !ok || s.Sample == nil {
		respondError(w, http.StatusNotFound, "sample not found")
		return
	}

	data, err := sample.EncodePNG(s.Sample)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to encode sample")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if slug := facematch.IdentifierSlug(s.Identifier); slug != "" {
		w.Header().Set("Content-Disposition", `inline; filename="`+slug+`.png"`)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Delete removes an enrolled face. Removing an unknown identifier succeeds.
func (h *FacesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.tracker.RemoveFace(identifierParam(r))
	w.WriteHeader(http.StatusNoContent)
}
