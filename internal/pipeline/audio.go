// Package pipeline runs the background handling for voice notes: fetch the
// media, download it, validate the audio, upload it to object storage,
// transcribe, run inference, and deliver the coaching reply. Each run is a
// detached task; local and uploaded artifacts are cleaned up on every exit
// path.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lingobot/internal/conversation"
	"github.com/lingobot/internal/event"
	"github.com/lingobot/internal/llm"
	"github.com/lingobot/internal/platform"
	"github.com/lingobot/internal/storage"
	"github.com/lingobot/internal/tasks"
	"github.com/lingobot/internal/transcribe"
)

// Transcriber converts an uploaded voice note into text. The production
// implementation is the resilient transcription client.
type Transcriber interface {
	Transcribe(ctx context.Context, blobURL, language string) (*transcribe.Result, error)
}

// User-facing stage failure messages. Internal error detail never reaches
// the user.
const (
	msgMediaFailed     = "Sorry, I failed to retrieve your voice note. Please try sending it again. 😕"
	msgDownloadFailed  = "Sorry, I couldn't download your voice note. Please try sending it again. 😕"
	msgCorruptAudio    = "That voice note seems to be damaged and I can't play it. Could you record it again? 🎙️"
	msgUploadFailed    = "Sorry, something went wrong while handling your voice note. Please try again. 😕"
	msgNoSpeech        = "I couldn't hear any speech in that voice note. Try recording a bit closer to the mic. 🤔"
	msgInferenceFailed = "I heard you, but I'm having trouble thinking of a reply right now. Please try again in a minute. 🙏"
)

const audioSystemPrompt = "You are LingoBot, a friendly language-practice coach on WhatsApp. " +
	"The learner sent a voice note; the transcript follows. Comment on their pronunciation-independent language use, " +
	"gently correct mistakes, and end with a question that keeps them talking."

// Options tunes the audio pipeline
type Options struct {
	TempDir        string        // empty means the OS temp dir
	MediaTimeout   time.Duration // resolve / download / upload / sends
	PersistTimeout time.Duration
	LongAudio      time.Duration // log threshold, never a rejection
}

// DefaultOptions matches the production deployment
func DefaultOptions() Options {
	return Options{
		MediaTimeout:   15 * time.Second,
		PersistTimeout: 10 * time.Second,
		LongAudio:      5 * time.Minute,
	}
}

// Pipeline owns the collaborators of the audio flow
type Pipeline struct {
	messaging   platform.Platform
	objects     storage.ObjectStore
	transcriber Transcriber
	backend     llm.InferenceBackend
	convo       conversation.Store
	tasks       *tasks.Supervisor
	opts        Options
	logger      zerolog.Logger
}

// New wires the audio pipeline. transcriber and backend should already carry
// their own retry handling and timeouts.
func New(messaging platform.Platform, objects storage.ObjectStore, transcriber Transcriber, backend llm.InferenceBackend, convo conversation.Store, supervisor *tasks.Supervisor, opts Options, logger zerolog.Logger) *Pipeline {
	if opts.MediaTimeout <= 0 {
		opts.MediaTimeout = DefaultOptions().MediaTimeout
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = DefaultOptions().PersistTimeout
	}
	if opts.LongAudio <= 0 {
		opts.LongAudio = DefaultOptions().LongAudio
	}
	return &Pipeline{
		messaging:   messaging,
		objects:     objects,
		transcriber: transcriber,
		backend:     backend,
		convo:       convo,
		tasks:       supervisor,
		opts:        opts,
		logger:      logger,
	}
}

// Start spawns the pipeline for one voice note as a supervised detached
// task. The caller returns its acknowledgment immediately.
func (p *Pipeline) Start(userID, eventID string, kind event.MessageKind) {
	p.tasks.Go("audio-pipeline", func() error {
		return p.run(context.Background(), userID, eventID, kind)
	})
}

// run walks the stage sequence for one voice note. Stage failures notify the
// user with a fixed message and stop the run; cleanup of the temp file and
// the uploaded blob happens on every path.
func (p *Pipeline) run(ctx context.Context, userID, eventID string, kind event.MessageKind) error {
	logger := p.logger.With().Str("event_id", eventID).Str("user", userID).Logger()
	start := time.Now()

	var localPath string
	var blob *storage.Blob
	defer func() {
		p.cleanup(localPath, blob, logger)
	}()

	// Received -> MediaFetched
	mediaURL, err := p.resolveMedia(ctx, kind.MediaID)
	if err != nil {
		logger.Error().Err(err).Str("media_id", kind.MediaID).Msg("media url resolution failed")
		p.notify(ctx, userID, msgMediaFailed, logger)
		return err
	}

	// MediaFetched -> Downloaded
	localPath, err = p.download(ctx, mediaURL)
	if err != nil {
		logger.Error().Err(err).Msg("media download failed")
		p.notify(ctx, userID, msgDownloadFailed, logger)
		return err
	}

	// Downloaded -> Validated
	duration, err := probeAudio(localPath, kind.MimeType)
	if err != nil {
		logger.Error().Err(err).Msg("audio validation failed")
		p.notify(ctx, userID, msgCorruptAudio, logger)
		return err
	}
	if duration > p.opts.LongAudio {
		logger.Warn().Dur("duration", duration).Msg("unusually long voice note")
	}

	// Validated -> Uploaded
	blob, err = p.upload(ctx, localPath)
	if err != nil {
		logger.Error().Err(err).Msg("storage upload failed")
		p.notify(ctx, userID, msgUploadFailed, logger)
		return err
	}

	// Uploaded -> Transcribed
	language := p.preferredLanguage(ctx, userID)
	transcription, err := p.transcriber.Transcribe(ctx, blob.URL, language)
	if err != nil {
		logger.Error().Err(err).Msg("transcription failed after retries")
		p.notify(ctx, userID, msgUploadFailed, logger)
		return err
	}

	transcript := strings.TrimSpace(transcription.Transcript)
	if transcript == "" {
		// A valid call with nothing in it is a soft stop, not an error
		logger.Info().Msg("empty transcript, nothing to coach")
		p.notify(ctx, userID, msgNoSpeech, logger)
		return nil
	}

	// Let the user see what was heard before the model answers
	p.deliverTranscript(ctx, userID, eventID, transcript, logger)

	// Transcribed -> Inferred
	reply, err := p.infer(ctx, transcript)
	if err != nil {
		// The transcript already reached the user; partial success
		logger.Error().Err(err).Msg("inference failed after retries")
		p.notify(ctx, userID, msgInferenceFailed, logger)
		return err
	}

	// Inferred -> Delivered
	if err := p.deliver(ctx, userID, reply); err != nil {
		logger.Error().Err(err).Msg("reply delivery failed")
		return err
	}

	p.persistExchange(userID, eventID, transcript, reply)

	logger.Info().
		Dur("elapsed", time.Since(start)).
		Dur("audio_duration", duration).
		Int("transcript_chars", len(transcript)).
		Msg("voice note processed")
	return nil
}

func (p *Pipeline) resolveMedia(ctx context.Context, mediaID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.MediaTimeout)
	defer cancel()

	url, err := p.messaging.ResolveMediaURL(ctx, mediaID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(url) == "" {
		return "", fmt.Errorf("empty media url for id %s", mediaID)
	}
	return url, nil
}

func (p *Pipeline) download(ctx context.Context, mediaURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.MediaTimeout)
	defer cancel()
	return p.messaging.Download(ctx, mediaURL, p.opts.TempDir)
}

func (p *Pipeline) upload(ctx context.Context, localPath string) (*storage.Blob, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.MediaTimeout)
	defer cancel()
	return p.objects.Upload(ctx, localPath)
}

func (p *Pipeline) preferredLanguage(ctx context.Context, userID string) string {
	ctx, cancel := context.WithTimeout(ctx, p.opts.PersistTimeout)
	defer cancel()

	lang, err := p.convo.GetPreference(ctx, userID)
	if err != nil {
		p.logger.Warn().Err(err).Str("user", userID).Msg("failed to load language preference")
		return ""
	}
	return lang
}

func (p *Pipeline) infer(ctx context.Context, transcript string) (string, error) {
	messages := []llm.Message{
		llm.System(audioSystemPrompt),
		llm.User(transcript),
	}

	completion, err := p.backend.Complete(ctx, messages, "")
	if err != nil {
		return "", err
	}

	reply := llm.CleanResponse(completion.Content)
	if reply == "" {
		return "", fmt.Errorf("inference returned empty content")
	}
	return reply, nil
}

// deliverTranscript surfaces what was heard as a threaded reply to the
// original voice note. Best-effort
func (p *Pipeline) deliverTranscript(ctx context.Context, userID, eventID, transcript string, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.MediaTimeout)
	defer cancel()

	if err := p.messaging.ReplyInThread(ctx, eventID, userID, "🗒️ I heard: "+transcript); err != nil {
		logger.Warn().Err(err).Msg("failed to deliver transcript")
	}
}

func (p *Pipeline) deliver(ctx context.Context, userID, reply string) error {
	ctx, cancel := context.WithTimeout(ctx, p.opts.MediaTimeout)
	defer cancel()

	_, err := p.messaging.SendText(ctx, userID, reply)
	return err
}

// persistExchange writes the transcript/reply pair as a detached best-effort
// task
func (p *Pipeline) persistExchange(userID, eventID, transcript, reply string) {
	p.tasks.Go("save-audio-exchange", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), p.opts.PersistTimeout)
		defer cancel()
		return p.convo.SaveResponse(ctx, userID, "[AUDIO]: "+transcript, reply, eventID)
	})
}

// notify sends a stage-failure message. Its own failure is only logged
func (p *Pipeline) notify(ctx context.Context, userID, message string, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.MediaTimeout)
	defer cancel()

	if _, err := p.messaging.SendText(ctx, userID, message); err != nil {
		logger.Warn().Err(err).Msg("failed to notify user of pipeline failure")
	}
}

// cleanup removes the local temp file and the uploaded blob. Failures are
// logged, never raised.
func (p *Pipeline) cleanup(localPath string, blob *storage.Blob, logger zerolog.Logger) {
	if localPath != "" {
		if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("path", localPath).Msg("failed to remove temp file")
		}
	}

	if blob != nil {
		ctx, cancel := context.WithTimeout(context.Background(), p.opts.MediaTimeout)
		defer cancel()
		if err := p.objects.Delete(ctx, blob.ID); err != nil {
			logger.Warn().Err(err).Str("blob_id", blob.ID).Msg("failed to delete uploaded blob")
		}
	}
}
