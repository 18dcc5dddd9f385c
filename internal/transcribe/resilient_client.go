package transcribe

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/lingobot/internal/retry"
)

// ResilientClient wraps a transcription backend with classification-aware
// retries and a per-call timeout
type ResilientClient struct {
	backend     Backend
	retryConfig retry.Config
	timeout     time.Duration
	logger      zerolog.Logger
}

// NewResilientClient creates a resilient transcription client
func NewResilientClient(backend Backend, config retry.Config, timeout time.Duration, logger zerolog.Logger) *ResilientClient {
	return &ResilientClient{
		backend:     backend,
		retryConfig: config,
		timeout:     timeout,
		logger:      logger,
	}
}

// Transcribe calls the backend through the retry executor
func (rc *ResilientClient) Transcribe(ctx context.Context, blobURL, language string) (*Result, error) {
	if rc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rc.timeout)
		defer cancel()
	}

	var transcription *Result
	result := retry.Do(ctx, rc.retryConfig, func() (error, string) {
		var err error
		transcription, err = rc.backend.Transcribe(ctx, blobURL, language)
		if err != nil {
			// Surface the response body to the classifier when present
			var httpErr *retry.HTTPError
			if errors.As(err, &httpErr) {
				return err, httpErr.Body
			}
			return err, ""
		}
		return nil, ""
	}, rc.logger)

	if !result.Success {
		return nil, result.LastError
	}

	rc.logger.Debug().
		Int("attempts", result.Attempts).
		Dur("total_duration", result.TotalDuration).
		Int("transcript_chars", len(transcription.Transcript)).
		Msg("transcription completed")

	return transcription, nil
}
