package handlers

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/facetrack/internal/detector"
	"github.com/kozaktomas/facetrack/internal/facematch"
	"github.com/kozaktomas/facetrack/internal/registry"
	"github.com/kozaktomas/facetrack/internal/sample"
	"github.com/kozaktomas/facetrack/internal/tracker"
)

var (
	red   = color.RGBA{255, 0, 0, 255}
	blue  = color.RGBA{0, 0, 255, 255}
	green = color.RGBA{0, 255, 0, 255}
	white = color.RGBA{255, 255, 255, 255}
)

// colorDetector finds one face in red and blue frames, two in green frames
// and none otherwise.
var colorDetector = detector.Func(func(_ context.Context, frame sample.Frame) ([]facematch.BoundingBox, error) {
	b := frame.Image.Bounds()
	c := color.RGBAModel.Convert(frame.Image.At(b.Min.X, b.Min.Y)).(color.RGBA)
	whole := facematch.BoundingBox{Width: b.Dx(), Height: b.Dy()}
	switch c {
	case red, blue:
		return []facematch.BoundingBox{whole}, nil
	case green:
		half := facematch.BoundingBox{Width: b.Dx() / 2, Height: b.Dy() / 2}
		return []facematch.BoundingBox{whole, half}, nil
	}
	return nil, nil
})

// meanColorEncoder embeds a sample as its mean colour scaled to [0, 2].
type meanColorEncoder struct{}

func (meanColorEncoder) Encode(_ context.Context, img image.Image) ([]float32, error) {
	var r, g, b float64
	bounds := img.Bounds()
	n := float64(bounds.Dx() * bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			r += float64(c.R)
			g += float64(c.G)
			b += float64(c.B)
		}
	}
	scale := 2 / (255 * n)
	return []float32{float32(r * scale), float32(g * scale), float32(b * scale)}, nil
}

// newTestTracker creates a tracker with an 8px pipeline and no sink
func newTestTracker(t *testing.T) *tracker.Tracker {
	t.Helper()
	reg := registry.New(registry.Options{Dimension: 3})
	tr := tracker.New(colorDetector, sample.NewPipeline(8), meanColorEncoder{}, reg, nil, tracker.Options{
		MatchThreshold: 1.1,
	})
	t.Cleanup(func() { _ = tr.Close(context.Background()) })
	return tr
}

// solidPNG returns a 16x16 PNG filled with c
func solidPNG(t *testing.T, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := range 16 {
		for x := range 16 {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// oversizedPNG returns a PNG signature and IHDR chunk declaring a
// width x height raster. It is enough for image.DecodeConfig.
func oversizedPNG(width, height uint32) []byte {
	ihdr := make([]byte, 0, 17)
	ihdr = append(ihdr, "IHDR"...)
	ihdr = binary.BigEndian.AppendUint32(ihdr, width)
	ihdr = binary.BigEndian.AppendUint32(ihdr, height)
	ihdr = append(ihdr, 8, 0, 0, 0, 0) // 8-bit grayscale

	out := []byte("\x89PNG\r\n\x1a\n")
	out = binary.BigEndian.AppendUint32(out, 13)
	out = append(out, ihdr...)
	return binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(ihdr))
}

// multipartRequest builds a multipart request with the given fields and an optional image
func multipartRequest(t *testing.T, method, path string, fields map[string]string, img []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	if img != nil {
		part, err := mw.CreateFormFile("image", "frame.png")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		part.Write(img)
	}
	mw.Close()

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}

// enroll registers c under id through the handler
func enroll(t *testing.T, h *FacesHandler, id string, c color.RGBA) {
	t.Helper()
	req := multipartRequest(t, http.MethodPost, "/api/v1/faces", map[string]string{"identifier": id}, solidPNG(t, c))
	rec := httptest.NewRecorder()
	h.Enroll(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("enroll %s: expected 201, got %d: %s", id, rec.Code, rec.Body.String())
	}
}

// mustDecode decodes an encoded test image
func mustDecode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, _, err := sample.DecodeImage(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode image: %v", err)
	}
	return img
}
