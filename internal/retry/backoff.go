package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// Config configures retry behavior with exponential backoff
type Config struct {
	MaxRetries int           `json:"max_retries"` // Maximum number of retry attempts (default: 4)
	BaseDelay  time.Duration `json:"base_delay"`  // Base delay between retries (default: 3s)
	MaxDelay   time.Duration `json:"max_delay"`   // Maximum delay between retries (default: 180s)
	Multiplier float64       `json:"multiplier"`  // Exponential backoff multiplier (default: 2.0)
	Jitter     bool          `json:"jitter"`      // Scale delays by uniform(0.5, 1.0) to avoid retry storms
	LogRetries bool          `json:"log_retries"` // Whether to log retry attempts (default: true)
}

// Result contains information about the retry operation
type Result struct {
	Attempts      int              `json:"attempts"`       // Total number of attempts made
	TotalDuration time.Duration    `json:"total_duration"` // Total time spent on all attempts
	LastError     *ClassifiedError `json:"-"`              // Last classified error encountered
	Success       bool             `json:"success"`        // Whether the operation eventually succeeded
	RetryReasons  []string         `json:"retry_reasons"`  // Classification for each failed attempt
}

// Operation is one attempt against an external backend. The second return is
// the raw response body text, when one exists, for the classifier to inspect.
type Operation func() (err error, responseText string)

// DefaultConfig returns the retry configuration used for cold-start-prone
// backends (transcription and inference)
func DefaultConfig() Config {
	return Config{
		MaxRetries: 4,
		BaseDelay:  3 * time.Second,
		MaxDelay:   180 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
		LogRetries: true,
	}
}

// Do executes an operation with exponential backoff. Every failure is run
// through Classify; only ModelLoading and Timeout kinds are retried, a Fatal
// classification returns immediately. This is the only place in the codebase
// that sleeps.
func Do(ctx context.Context, config Config, operation Operation, logger zerolog.Logger) Result {
	startTime := time.Now()

	result := Result{
		RetryReasons: make([]string, 0),
	}

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		result.Attempts = attempt + 1

		err, responseText := operation()
		if err == nil {
			result.Success = true
			result.TotalDuration = time.Since(startTime)
			if config.LogRetries && attempt > 0 {
				logger.Info().
					Int("retries", attempt).
					Dur("total_duration", result.TotalDuration).
					Msg("operation succeeded after retries")
			}
			return result
		}

		kind := Classify(err, responseText)
		result.LastError = &ClassifiedError{Kind: kind, Err: err}
		result.RetryReasons = append(result.RetryReasons, kind.String())

		if !kind.Retryable() {
			result.TotalDuration = time.Since(startTime)
			if config.LogRetries {
				logger.Error().Err(err).
					Int("attempt", result.Attempts).
					Msg("operation failed with non-retryable error")
			}
			return result
		}

		if attempt >= config.MaxRetries {
			result.TotalDuration = time.Since(startTime)
			if config.LogRetries {
				logger.Error().Err(err).
					Int("attempts", result.Attempts).
					Dur("total_duration", result.TotalDuration).
					Msg("operation failed after all retries")
			}
			return result
		}

		if ctx.Err() != nil {
			result.LastError = &ClassifiedError{Kind: KindTimeout, Err: ctx.Err()}
			result.TotalDuration = time.Since(startTime)
			return result
		}

		delay := computeDelay(config, attempt)
		if config.LogRetries {
			logger.Warn().Err(err).
				Int("attempt", result.Attempts).
				Int("max_attempts", config.MaxRetries+1).
				Str("classification", kind.String()).
				Dur("delay", delay).
				Msg("operation failed, retrying")
		}

		select {
		case <-ctx.Done():
			result.LastError = &ClassifiedError{Kind: KindTimeout, Err: ctx.Err()}
			result.TotalDuration = time.Since(startTime)
			return result
		case <-time.After(delay):
		}
	}

	// Unreachable: the loop always returns
	result.TotalDuration = time.Since(startTime)
	return result
}

// computeDelay calculates the delay for the next retry attempt: exponential
// backoff capped at MaxDelay, then scaled by uniform(0.5, 1.0) jitter.
func computeDelay(config Config, attempt int) time.Duration {
	delay := float64(config.BaseDelay) * math.Pow(config.Multiplier, float64(attempt))

	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}

	if config.Jitter {
		delay *= 0.5 + rand.Float64()*0.5
	}

	return time.Duration(delay)
}
