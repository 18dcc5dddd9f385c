// Package transcribe talks to the serverless speech-to-text endpoint. The
// backend runs on cold-start-prone GPU workers, so callers go through
// ResilientClient.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/rs/zerolog"

	"github.com/lingobot/internal/retry"
)

// Result is a finished transcription
type Result struct {
	Transcript string          `json:"transcript"`
	Raw        json.RawMessage `json:"raw,omitempty"`
}

// Backend transcribes an uploaded audio blob
type Backend interface {
	Transcribe(ctx context.Context, blobURL, language string) (*Result, error)
}

// Client calls a RunPod-style synchronous serverless endpoint
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a transcription client. The http.Client's timeout bounds
// each attempt; retries happen in the resilient wrapper.
func NewClient(endpoint, apiKey string, httpClient *http.Client, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger,
	}
}

type runRequest struct {
	Input runInput `json:"input"`
}

type runInput struct {
	Audio    string `json:"audio"`
	Language string `json:"language,omitempty"`
}

type runResponse struct {
	ID     string    `json:"id"`
	Status string    `json:"status"`
	Error  string    `json:"error,omitempty"`
	Output runOutput `json:"output"`
}

type runOutput struct {
	Transcription string `json:"transcription"`
	DetectedLang  string `json:"detected_language,omitempty"`
}

// Transcribe implements Backend. HTTP failures come back as
// *retry.HTTPError with the body attached so the classifier can read
// cold-start markers out of it.
func (c *Client) Transcribe(ctx context.Context, blobURL, language string) (*Result, error) {
	payload, err := json.Marshal(runRequest{Input: runInput{Audio: blobURL, Language: language}})
	if err != nil {
		return nil, fmt.Errorf("failed to encode transcription request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build transcription request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcription response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	parsed, err := c.parseResponse(body)
	if err != nil {
		return nil, err
	}

	if parsed.Error != "" {
		return nil, &retry.HTTPError{StatusCode: http.StatusInternalServerError, Body: parsed.Error}
	}

	return &Result{
		Transcript: strings.TrimSpace(parsed.Output.Transcription),
		Raw:        json.RawMessage(body),
	}, nil
}

// parseResponse unmarshals the endpoint's JSON, repairing it first when the
// worker returns a truncated or otherwise malformed body.
func (c *Client) parseResponse(body []byte) (*runResponse, error) {
	var parsed runResponse
	if err := json.Unmarshal(body, &parsed); err == nil {
		return &parsed, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(string(body))
	if repairErr != nil {
		return nil, fmt.Errorf("transcription response is not valid JSON: %s", truncate(string(body), 200))
	}

	c.logger.Warn().
		Int("body_bytes", len(body)).
		Msg("transcription response required JSON repair")

	if err := json.Unmarshal([]byte(repaired), &parsed); err != nil {
		return nil, fmt.Errorf("transcription response unparseable after repair: %w", err)
	}
	return &parsed, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
