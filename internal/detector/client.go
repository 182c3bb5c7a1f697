package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/kozaktomas/facetrack/internal/facematch"
	"github.com/kozaktomas/facetrack/internal/sample"
)

const defaultDetectorURL = "http://localhost:8000"

// Detection represents a single detected face
type Detection struct {
	BBox     []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore float64   `json:"det_score"`
}

// DetectionResponse represents the response from the face detection endpoint
type DetectionResponse struct {
	FacesCount int         `json:"faces_count"`
	Faces      []Detection `json:"faces"`
	Model      string      `json:"model"`
}

// Client detects faces using the face detection server.
type Client struct {
	baseURL      string
	minScore     float64
	iouThreshold float64
	client       *http.Client
}

// ClientOptions tunes filtering of the server's detections.
type ClientOptions struct {
	MinScore     float64
	IoUThreshold float64
	Timeout      time.Duration
}

// NewClient creates a new detection client
func NewClient(baseURL string, opts ClientOptions) *Client {
	if baseURL == "" {
		baseURL = defaultDetectorURL
	}
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		minScore:     opts.MinScore,
		iouThreshold: opts.IoUThreshold,
		client:       &http.Client{Timeout: opts.Timeout},
	}
}

// Detect uploads the upright frame and returns the filtered face boxes.
func (c *Client) Detect(ctx context.Context, frame sample.Frame) ([]facematch.BoundingBox, error) {
	var img bytes.Buffer
	if err := jpeg.Encode(&img, sample.Upright(frame), &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}

	resp, err := c.detectFaces(ctx, img.Bytes())
	if err != nil {
		return nil, err
	}

	scored := make([]facematch.ScoredBox, 0, len(resp.Faces))
	for _, face := range resp.Faces {
		if face.DetScore < c.minScore {
			continue
		}
		box, ok := facematch.BoxFromCorners(face.BBox)
		if !ok {
			continue
		}
		scored = append(scored, facematch.ScoredBox{Box: box, Score: face.DetScore})
	}

	if c.iouThreshold <= 0 {
		boxes := make([]facematch.BoundingBox, len(scored))
		for i, s := range scored {
			boxes[i] = s.Box
		}
		return boxes, nil
	}
	return facematch.SuppressOverlaps(scored, c.iouThreshold), nil
}

// detectFaces posts a JPEG to /detect/faces.
func (c *Client) detectFaces(ctx context.Context, imageData []byte) (*DetectionResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="frame.jpg"`)
	h.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect/faces", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var detResp DetectionResponse
	if err := json.Unmarshal(body, &detResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &detResp, nil
}
