package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lingobot/pkg/models"
)

// DefaultGraphURL is the Meta Graph API base for the Cloud API
const DefaultGraphURL = "https://graph.facebook.com/v19.0"

// WhatsAppClient implements Platform against the WhatsApp Cloud API
type WhatsAppClient struct {
	baseURL       string
	accessToken   string
	phoneNumberID string
	httpClient    *http.Client
	limiter       *rate.Limiter
	logger        zerolog.Logger
}

// WhatsAppOptions configures the client
type WhatsAppOptions struct {
	BaseURL       string
	AccessToken   string
	PhoneNumberID string
	Timeout       time.Duration
}

// NewWhatsAppClient creates a Cloud API client with a short per-call timeout
// and a client-side rate limiter
func NewWhatsAppClient(opts WhatsAppOptions, logger zerolog.Logger) *WhatsAppClient {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultGraphURL
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &WhatsAppClient{
		baseURL:       strings.TrimRight(baseURL, "/"),
		accessToken:   opts.AccessToken,
		phoneNumberID: opts.PhoneNumberID,
		httpClient:    &http.Client{Timeout: timeout},
		limiter:       rate.NewLimiter(rate.Every(time.Second), 10), // 10 requests per second
		logger:        logger,
	}
}

type mediaLookupResponse struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	FileSize int64  `json:"file_size"`
}

// ResolveMediaURL implements Platform
func (c *WhatsAppClient) ResolveMediaURL(ctx context.Context, mediaID string) (string, error) {
	body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("%s/%s", c.baseURL, mediaID), nil)
	if err != nil {
		return "", fmt.Errorf("media lookup failed for %s: %w", mediaID, err)
	}

	var lookup mediaLookupResponse
	if err := json.Unmarshal(body, &lookup); err != nil {
		return "", fmt.Errorf("failed to parse media lookup response: %w", err)
	}

	return lookup.URL, nil
}

// Download implements Platform. The media URL returned by the lookup is
// short-lived and requires the same bearer token.
func (c *WhatsAppClient) Download(ctx context.Context, url, destDir string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("media download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("media download returned status %d", resp.StatusCode)
	}

	ext := extensionForContentType(resp.Header.Get("Content-Type"))
	file, err := os.CreateTemp(destDir, "voice-*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	written, err := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("failed to write media to disk: %w", err)
	}
	if closeErr != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("failed to close temp file: %w", closeErr)
	}

	c.logger.Debug().
		Str("path", file.Name()).
		Int64("bytes", written).
		Msg("media downloaded")

	return file.Name(), nil
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// SendText implements Platform
func (c *WhatsAppClient) SendText(ctx context.Context, recipient, text string) (string, error) {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                recipient,
		"type":              "text",
		"text":              map[string]any{"body": text},
	}
	return c.sendMessage(ctx, payload)
}

// ReplyInThread implements Platform
func (c *WhatsAppClient) ReplyInThread(ctx context.Context, targetMessageID, recipient, text string) error {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                recipient,
		"type":              "text",
		"context":           map[string]any{"message_id": targetMessageID},
		"text":              map[string]any{"body": text},
	}
	_, err := c.sendMessage(ctx, payload)
	return err
}

// SendTemplate implements Platform
func (c *WhatsAppClient) SendTemplate(ctx context.Context, recipient, templateName string) error {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                recipient,
		"type":              "template",
		"template": map[string]any{
			"name":     templateName,
			"language": map[string]any{"code": "en"},
		},
	}
	_, err := c.sendMessage(ctx, payload)
	return err
}

// SendButtons implements Platform
func (c *WhatsAppClient) SendButtons(ctx context.Context, recipient string, spec models.ButtonSpec) error {
	buttons := make([]map[string]any, 0, len(spec.Buttons))
	for _, b := range spec.Buttons {
		buttons = append(buttons, map[string]any{
			"type":  "reply",
			"reply": map[string]any{"id": b.ID, "title": b.Title},
		})
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                recipient,
		"type":              "interactive",
		"interactive": map[string]any{
			"type":   "button",
			"body":   map[string]any{"text": spec.Body},
			"action": map[string]any{"buttons": buttons},
		},
	}
	_, err := c.sendMessage(ctx, payload)
	return err
}

func (c *WhatsAppClient) sendMessage(ctx context.Context, payload map[string]any) (string, error) {
	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	body, err := c.doRequest(ctx, http.MethodPost, url, payload)
	if err != nil {
		return "", err
	}

	var sent sendResponse
	if err := json.Unmarshal(body, &sent); err != nil {
		return "", fmt.Errorf("failed to parse send response: %w", err)
	}
	if len(sent.Messages) == 0 {
		return "", nil
	}
	return sent.Messages[0].ID, nil
}

func (c *WhatsAppClient) doRequest(ctx context.Context, method, url string, payload any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("platform API returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	return body, nil
}

func extensionForContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ".bin"
	}
	switch mediaType {
	case "audio/ogg":
		return ".ogg"
	case "audio/mpeg":
		return ".mp3"
	case "audio/mp4", "audio/m4a":
		return ".m4a"
	case "audio/amr":
		return ".amr"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	}
	return ".bin"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
