package platform

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingobot/pkg/models"
)

func newTestWhatsApp(t *testing.T, handler http.Handler) *WhatsAppClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewWhatsAppClient(WhatsAppOptions{
		BaseURL:       server.URL,
		AccessToken:   "token-abc",
		PhoneNumberID: "106000000000000",
	}, zerolog.Nop())
}

func TestWhatsAppClient_ResolveMediaURL(t *testing.T) {
	client := newTestWhatsApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/media-123", r.URL.Path)
		assert.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))
		w.Write([]byte(`{"url":"https://cdn.example/file.ogg","mime_type":"audio/ogg","file_size":2048}`))
	}))

	url, err := client.ResolveMediaURL(context.Background(), "media-123")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/file.ogg", url)
}

func TestWhatsAppClient_Download(t *testing.T) {
	content := []byte("OggS fake audio bytes")
	client := newTestWhatsApp(t, nil)

	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "audio/ogg")
		w.Write(content)
	}))
	t.Cleanup(media.Close)

	destDir := t.TempDir()
	path, err := client.Download(context.Background(), media.URL, destDir)
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(path) })

	assert.Contains(t, path, destDir)
	assert.Contains(t, path, ".ogg")

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestWhatsAppClient_SendText(t *testing.T) {
	var captured map[string]any
	client := newTestWhatsApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/106000000000000/messages", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		w.Write([]byte(`{"messages":[{"id":"wamid.out1"}]}`))
	}))

	id, err := client.SendText(context.Background(), "15551234567", "hello")
	require.NoError(t, err)
	assert.Equal(t, "wamid.out1", id)

	assert.Equal(t, "whatsapp", captured["messaging_product"])
	assert.Equal(t, "15551234567", captured["to"])
	assert.Equal(t, "text", captured["type"])
}

func TestWhatsAppClient_ReplyInThread(t *testing.T) {
	var captured map[string]any
	client := newTestWhatsApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		w.Write([]byte(`{"messages":[{"id":"wamid.out2"}]}`))
	}))

	err := client.ReplyInThread(context.Background(), "wamid.orig", "15551234567", "transcript here")
	require.NoError(t, err)

	ctxField, ok := captured["context"].(map[string]any)
	require.True(t, ok, "expected a context field for threaded replies")
	assert.Equal(t, "wamid.orig", ctxField["message_id"])
}

func TestWhatsAppClient_ErrorStatus(t *testing.T) {
	client := newTestWhatsApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"invalid recipient"}}`))
	}))

	_, err := client.SendText(context.Background(), "bogus", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

type recordingPlatform struct {
	texts     []string
	templates []string
	buttons   []models.ButtonSpec
}

func (p *recordingPlatform) ResolveMediaURL(context.Context, string) (string, error) {
	return "", nil
}
func (p *recordingPlatform) Download(context.Context, string, string) (string, error) {
	return "", nil
}
func (p *recordingPlatform) SendText(_ context.Context, _, text string) (string, error) {
	p.texts = append(p.texts, text)
	return "wamid.x", nil
}
func (p *recordingPlatform) ReplyInThread(context.Context, string, string, string) error {
	return nil
}
func (p *recordingPlatform) SendTemplate(_ context.Context, _, name string) error {
	p.templates = append(p.templates, name)
	return nil
}
func (p *recordingPlatform) SendButtons(_ context.Context, _ string, spec models.ButtonSpec) error {
	p.buttons = append(p.buttons, spec)
	return nil
}

func TestResponseDispatcher(t *testing.T) {
	rec := &recordingPlatform{}
	rd := NewResponseDispatcher(rec, zerolog.Nop())

	require.NoError(t, rd.Dispatch(context.Background(), models.ProcessingResult{
		Kind: models.ResultText, UserID: "u1", Message: "hi",
	}))
	require.NoError(t, rd.Dispatch(context.Background(), models.ProcessingResult{
		Kind: models.ResultTemplate, UserID: "u1", Template: "choose_language",
	}))
	require.NoError(t, rd.Dispatch(context.Background(), models.Skip()))

	assert.Equal(t, []string{"hi"}, rec.texts)
	assert.Equal(t, []string{"choose_language"}, rec.templates)
}
