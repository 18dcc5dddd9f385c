package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HTTPStore implements ObjectStore against a Supabase-style storage API:
// objects are PUT under a bucket path and served from a public URL.
type HTTPStore struct {
	baseURL    string
	apiKey     string
	bucket     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// HTTPStoreOptions configures the store
type HTTPStoreOptions struct {
	BaseURL string
	APIKey  string
	Bucket  string
	Timeout time.Duration
}

// NewHTTPStore creates a storage client with a short per-call timeout
func NewHTTPStore(opts HTTPStoreOptions, logger zerolog.Logger) *HTTPStore {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &HTTPStore{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		bucket:     opts.Bucket,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Upload implements ObjectStore. The object key is a fresh UUID plus the
// source file's extension so concurrent pipelines never collide.
func (s *HTTPStore) Upload(ctx context.Context, localPath string) (*Blob, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer file.Close()

	key := uuid.NewString() + filepath.Ext(localPath)
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, key)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, file)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", contentTypeForExt(filepath.Ext(localPath)))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, fmt.Errorf("upload returned status %d: %s", resp.StatusCode, string(body))
	}

	blob := &Blob{
		ID:  key,
		URL: fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, key),
	}

	s.logger.Debug().Str("blob_id", blob.ID).Msg("object uploaded")
	return blob, nil
}

// Delete implements ObjectStore
func (s *HTTPStore) Delete(ctx context.Context, blobID string) error {
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, blobID)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	defer resp.Body.Close()

	// A 404 means the object is already gone; deletion is idempotent
	if resp.StatusCode != http.StatusNotFound && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		return fmt.Errorf("delete returned status %d", resp.StatusCode)
	}

	return nil
}

func contentTypeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".ogg":
		return "audio/ogg"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	case ".wav":
		return "audio/wav"
	case ".amr":
		return "audio/amr"
	}
	return "application/octet-stream"
}
