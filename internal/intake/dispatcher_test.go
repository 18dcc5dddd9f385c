package intake

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingobot/internal/event"
	"github.com/lingobot/pkg/models"
)

type fakeRouter struct {
	calls  int
	result models.ProcessingResult
}

func (f *fakeRouter) Route(_ context.Context, _ string, _ event.MessageKind) models.ProcessingResult {
	f.calls++
	return f.result
}

type fakeAudio struct {
	started []string
}

func (f *fakeAudio) Start(_, eventID string, _ event.MessageKind) {
	f.started = append(f.started, eventID)
}

func textPayload(eventID, body string) *event.WebhookPayload {
	raw := `{
		"object": "whatsapp_business_account",
		"entry": [{"changes": [{"field": "messages", "value": {
			"messages": [{"id": "` + eventID + `", "from": "15551234567", "type": "text", "text": {"body": "` + body + `"}}]
		}}]}]
	}`
	var payload event.WebhookPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		panic(err)
	}
	return &payload
}

func audioPayload(eventID string) *event.WebhookPayload {
	return &event.WebhookPayload{
		Entry: []event.Entry{{Changes: []event.Change{{Value: event.ChangeValue{
			Messages: []event.Message{{
				ID:    eventID,
				From:  "15551234567",
				Type:  "audio",
				Audio: &event.Media{ID: "media-1", MimeType: "audio/ogg"},
			}},
		}}}}},
	}
}

func TestDispatcher_DedupIdempotence(t *testing.T) {
	router := &fakeRouter{result: models.TextReply("hi there")}
	d := NewDispatcher(router, &fakeAudio{}, NewStats(), zerolog.Nop())

	first := d.Handle(context.Background(), textPayload("wamid.dup", "hello"))
	require.Equal(t, models.ResultText, first.Kind)
	assert.Equal(t, "wamid.dup", first.EventID)

	second := d.Handle(context.Background(), textPayload("wamid.dup", "hello"))
	assert.Equal(t, models.ResultSkip, second.Kind)

	assert.Equal(t, 1, router.calls, "router must run once per unique event")

	_, duplicates, _ := d.stats.Snapshot()
	assert.Equal(t, uint64(1), duplicates)
}

func TestDispatcher_StatusCallbackSkips(t *testing.T) {
	router := &fakeRouter{result: models.TextReply("x")}
	d := NewDispatcher(router, &fakeAudio{}, NewStats(), zerolog.Nop())

	payload := &event.WebhookPayload{
		Entry: []event.Entry{{Changes: []event.Change{{Value: event.ChangeValue{
			Statuses: []json.RawMessage{json.RawMessage(`{"status":"read"}`)},
		}}}}},
	}

	result := d.Handle(context.Background(), payload)
	assert.Equal(t, models.ResultSkip, result.Kind)
	assert.Zero(t, router.calls)
}

func TestDispatcher_AudioSpawnsPipeline(t *testing.T) {
	router := &fakeRouter{result: models.TextReply("x")}
	audio := &fakeAudio{}
	d := NewDispatcher(router, audio, NewStats(), zerolog.Nop())

	result := d.Handle(context.Background(), audioPayload("wamid.audio1"))

	require.Equal(t, models.ResultText, result.Kind)
	assert.Equal(t, AudioAckMessage, result.Message)
	assert.False(t, result.ShouldPersist)
	assert.Equal(t, []string{"wamid.audio1"}, audio.started)
	assert.Zero(t, router.calls, "audio must not hit the fast path")

	_, _, audioJobs := d.stats.Snapshot()
	assert.Equal(t, uint64(1), audioJobs)
}

func TestDispatcher_ResultCarriesTiming(t *testing.T) {
	router := &fakeRouter{result: models.TextReply("pong")}
	d := NewDispatcher(router, &fakeAudio{}, NewStats(), zerolog.Nop())

	result := d.Handle(context.Background(), textPayload("wamid.t", "ping"))
	assert.Equal(t, "15551234567", result.UserID)
	assert.GreaterOrEqual(t, result.Elapsed.Nanoseconds(), int64(0))
}
