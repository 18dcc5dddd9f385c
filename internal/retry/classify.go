package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// Kind is the classification assigned to a failed external call.
type Kind int

const (
	// KindFatal means the error is a programmer or input error and must
	// propagate unchanged. Never retried.
	KindFatal Kind = iota
	// KindModelLoading means the backend is cold-starting. Retryable.
	KindModelLoading
	// KindTimeout covers network timeouts and rate limiting. Retryable.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindModelLoading:
		return "model_loading"
	case KindTimeout:
		return "timeout"
	default:
		return "fatal"
	}
}

// Retryable reports whether the kind is worth another attempt.
func (k Kind) Retryable() bool {
	return k == KindModelLoading || k == KindTimeout
}

// HTTPError is a structured HTTP failure from an external backend. The body
// is kept so the classifier can inspect free-text signals like
// "model is loading" that serverless backends return with a 200-adjacent
// status.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, body)
}

// ClassifiedError wraps the original error with its classification. The
// original error is reachable through errors.Unwrap so callers can still
// distinguish input errors from infrastructure flakiness.
type ClassifiedError struct {
	Kind Kind
	Err  error
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// Keyword sets indicating a backend that is still initializing. These show up
// in response bodies from serverless GPU providers during cold starts.
var modelLoadingKeywords = []string{
	"model is loading",
	"still loading",
	"loading model",
	"cold start",
	"worker is not ready",
	"downloading",
}

var timeoutKeywords = []string{
	"timed out",
	"timeout",
}

// Classify maps a raw failure to its Kind. The rules run in order and the
// first match wins:
//
//  1. model-loading keywords in responseText (or the error string)
//  2. timeout keywords
//  3. structured HTTP status: 429 -> Timeout, 5xx -> ModelLoading
//  4. low-level connection/timeout error types -> Timeout
//  5. everything else -> Fatal
func Classify(err error, responseText string) Kind {
	if err == nil {
		return KindFatal
	}

	text := responseText
	if text == "" {
		text = err.Error()
	}
	lower := strings.ToLower(text)

	for _, kw := range modelLoadingKeywords {
		if strings.Contains(lower, kw) {
			return KindModelLoading
		}
	}

	for _, kw := range timeoutKeywords {
		if strings.Contains(lower, kw) {
			return KindTimeout
		}
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == 429:
			return KindTimeout
		case httpErr.StatusCode >= 500 && httpErr.StatusCode <= 599:
			return KindModelLoading
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return KindTimeout
	}

	return KindFatal
}
