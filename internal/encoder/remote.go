package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultEmbeddingURL = "http://localhost:8000"

// RemoteModel runs inference on an embedding server.
type RemoteModel struct {
	baseURL   string
	inputSize int
	client    *http.Client
}

type tensorRequest struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// embeddingResponse represents the response from the embedding server
type embeddingResponse struct {
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	Model     string    `json:"model"`
}

// NewRemoteModel creates a client for the embedding server at baseURL.
func NewRemoteModel(baseURL string, inputSize int, timeout time.Duration) *RemoteModel {
	if baseURL == "" {
		baseURL = defaultEmbeddingURL
	}
	return &RemoteModel{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		inputSize: inputSize,
		client:    &http.Client{Timeout: timeout},
	}
}

// Ping checks that the embedding server is reachable.
func (m *RemoteModel) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embedding server unhealthy (status %d)", resp.StatusCode)
	}
	return nil
}

// Run posts the tensor to /embed/tensor and returns the embedding.
func (m *RemoteModel) Run(ctx context.Context, input []float32) ([]float32, error) {
	reqBody, err := json.Marshal(tensorRequest{
		Shape: []int{1, m.inputSize, m.inputSize, 3},
		Data:  input,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/embed/tensor", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
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

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(embResp.Embedding) == 0 {
		return nil, errors.New("empty embedding returned")
	}

	return embResp.Embedding, nil
}

// Close is a no-op; the HTTP client holds no model state.
func (m *RemoteModel) Close() error {
	return nil
}
