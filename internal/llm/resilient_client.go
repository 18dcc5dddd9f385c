package llm

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/lingobot/internal/retry"
)

// ResilientClient wraps an InferenceBackend with classification-aware retry
// logic and a per-call timeout. Inference backends on serverless GPUs need
// minutes-scale patience during cold starts.
type ResilientClient struct {
	backend     InferenceBackend
	retryConfig retry.Config
	timeout     time.Duration
	logger      zerolog.Logger
}

// NewResilientClient creates a resilient inference client
func NewResilientClient(backend InferenceBackend, config retry.Config, timeout time.Duration, logger zerolog.Logger) *ResilientClient {
	return &ResilientClient{
		backend:     backend,
		retryConfig: config,
		timeout:     timeout,
		logger:      logger,
	}
}

// Complete calls the backend through the retry executor. On exhaustion or a
// fatal classification it returns the classified error; errors.Unwrap still
// reaches the backend's original error.
func (rc *ResilientClient) Complete(ctx context.Context, messages []Message, modelType string) (*Completion, error) {
	if rc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rc.timeout)
		defer cancel()
	}

	var completion *Completion
	result := retry.Do(ctx, rc.retryConfig, func() (error, string) {
		var err error
		completion, err = rc.backend.Complete(ctx, messages, modelType)
		if err != nil {
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
		Int("prompt_tokens", completion.Usage.PromptTokens).
		Int("completion_tokens", completion.Usage.CompletionTokens).
		Msg("inference call completed")

	return completion, nil
}
