package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// RemoteTimestampLayout is the collector's timestamp format (always UTC).
const RemoteTimestampLayout = "2006-01-02T15:04:05Z"

const createEventMutation = `mutation CreateEvent($input: CreateEventInput!) {
  createEvent(input: $input) {
    __typename
  }
}`

// APISink reports events to the remote GraphQL collector.
type APISink struct {
	url      string
	apiKey   string
	metaData string
	client   *http.Client
}

// NewAPISink creates a sink posting to url with the X-API-KEY header.
func NewAPISink(url, apiKey string, client *http.Client) *APISink {
	if client == nil {
		client = &http.Client{}
	}
	return &APISink{
		url:      url,
		apiKey:   apiKey,
		metaData: "{}",
		client:   client,
	}
}

type createEventInput struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	MetaData  string `json:"metaData"`
}

type graphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Emit sends the createEvent mutation for event.
func (s *APISink) Emit(ctx context.Context, event TrackingEvent) error {
	reqBody, err := json.Marshal(graphQLRequest{
		Query:         createEventMutation,
		OperationName: "CreateEvent",
		Variables: map[string]any{
			"input": createEventInput{
				Type:      event.Kind.RemoteType(),
				Timestamp: event.Timestamp.UTC().Format(RemoteTimestampLayout),
				MetaData:  s.metaData,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var gqlResp graphQLResponse
	if err := json.Unmarshal(body, &gqlResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if len(gqlResp.Errors) > 0 {
		msgs := make([]string, len(gqlResp.Errors))
		for i, e := range gqlResp.Errors {
			msgs[i] = e.Message
		}
		return errors.New("createEvent failed: " + strings.Join(msgs, "; "))
	}

	return nil
}
