// Package intake is the webhook entry point of the message pipeline: it
// validates the payload, gates duplicates, classifies the message, and routes
// it to the synchronous fast path or the detached audio pipeline.
package intake

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lingobot/internal/event"
	"github.com/lingobot/pkg/models"
)

// FastRouter handles every synchronous message kind
type FastRouter interface {
	Route(ctx context.Context, userID string, kind event.MessageKind) models.ProcessingResult
}

// AudioRunner starts the detached background pipeline for a voice message
type AudioRunner interface {
	Start(userID, eventID string, kind event.MessageKind)
}

// Dispatcher orchestrates intake for one webhook delivery
type Dispatcher struct {
	dedup  *Deduplicator
	fast   FastRouter
	audio  AudioRunner
	stats  *Stats
	logger zerolog.Logger
}

// NewDispatcher wires the intake components together
func NewDispatcher(fast FastRouter, audio AudioRunner, stats *Stats, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		dedup:  NewDeduplicator(),
		fast:   fast,
		audio:  audio,
		stats:  stats,
		logger: logger,
	}
}

// AudioAckMessage is returned immediately when a voice note enters the
// background pipeline
const AudioAckMessage = "Got your voice note! Give me a moment to listen. 🎧"

// Handle processes one inbound event and returns the acknowledgment result.
// The dedup check and classification run synchronously; audio work is
// spawned detached so the webhook responds immediately.
func (d *Dispatcher) Handle(ctx context.Context, payload *event.WebhookPayload) models.ProcessingResult {
	start := time.Now()

	msg, ok := payload.FirstMessage()
	if !ok {
		// Delivery receipts and other non-message callbacks
		return models.Skip()
	}

	eventID := msg.EventID()
	if eventID == "" {
		// Fall back to a generated id so accounting still works; such an
		// event can never be deduplicated against a redelivery
		eventID = uuid.NewString()
	}

	if !d.dedup.CheckAndMark(eventID) {
		d.stats.markDuplicate()
		d.logger.Debug().Str("event_id", eventID).Msg("duplicate event skipped")
		return models.Skip()
	}

	kind := event.Classify(msg)
	userID := msg.SenderID()

	d.logger.Info().
		Str("event_id", eventID).
		Str("user", userID).
		Str("kind", kind.Tag.String()).
		Msg("processing inbound event")

	var result models.ProcessingResult
	if kind.Tag == event.KindAudio {
		d.stats.markAudioJob()
		d.audio.Start(userID, eventID, kind)
		result = models.TextReply(AudioAckMessage)
	} else {
		result = d.fast.Route(ctx, userID, kind)
	}

	d.stats.markProcessed()
	result.Elapsed = time.Since(start)
	result.UserID = userID
	result.EventID = eventID
	return result
}
