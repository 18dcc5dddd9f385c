package transcribe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingobot/internal/retry"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "test-key", server.Client(), zerolog.Nop())
}

func TestClient_Transcribe(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":"job-1","status":"COMPLETED","output":{"transcription":"  hola, ¿qué tal?  "}}`))
	})

	result, err := client.Transcribe(context.Background(), "https://blobs/x.ogg", "es")
	require.NoError(t, err)
	assert.Equal(t, "hola, ¿qué tal?", result.Transcript)
}

func TestClient_RepairsMalformedJSON(t *testing.T) {
	// Truncated body: worker died mid-write. jsonrepair closes the braces.
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"job-2","status":"COMPLETED","output":{"transcription":"bonjour"`))
	})

	result, err := client.Transcribe(context.Background(), "https://blobs/y.ogg", "fr")
	require.NoError(t, err)
	assert.Equal(t, "bonjour", result.Transcript)
}

func TestClient_HTTPErrorCarriesBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("model is loading"))
	})

	_, err := client.Transcribe(context.Background(), "https://blobs/z.ogg", "")
	require.Error(t, err)

	var httpErr *retry.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)

	// The body text should drive classification to model_loading
	assert.Equal(t, retry.KindModelLoading, retry.Classify(err, httpErr.Body))
}

func TestClient_WorkerLevelError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"job-3","status":"FAILED","error":"worker is not ready"}`))
	})

	_, err := client.Transcribe(context.Background(), "https://blobs/w.ogg", "")
	require.Error(t, err)
	assert.Equal(t, retry.KindModelLoading, retry.Classify(err, ""))
}

type flakyBackend struct {
	failures int
	calls    int
	result   *Result
}

func (f *flakyBackend) Transcribe(_ context.Context, _, _ string) (*Result, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, &retry.HTTPError{StatusCode: 503, Body: "cold start"}
	}
	return f.result, nil
}

func TestResilientClient_RetriesColdStart(t *testing.T) {
	backend := &flakyBackend{failures: 2, result: &Result{Transcript: "hallo"}}
	rc := NewResilientClient(backend, retry.Config{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		Multiplier: 2.0,
	}, time.Second, zerolog.Nop())

	result, err := rc.Transcribe(context.Background(), "https://blobs/a.ogg", "de")
	require.NoError(t, err)
	assert.Equal(t, "hallo", result.Transcript)
	assert.Equal(t, 3, backend.calls)
}

type fatalBackend struct{ calls int }

func (f *fatalBackend) Transcribe(_ context.Context, _, _ string) (*Result, error) {
	f.calls++
	return nil, errors.New("unsupported audio format")
}

func TestResilientClient_FatalShortCircuits(t *testing.T) {
	backend := &fatalBackend{}
	rc := NewResilientClient(backend, retry.Config{
		MaxRetries: 5,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		Multiplier: 2.0,
	}, time.Second, zerolog.Nop())

	_, err := rc.Transcribe(context.Background(), "https://blobs/b.ogg", "")
	require.Error(t, err)
	assert.Equal(t, 1, backend.calls)
}
