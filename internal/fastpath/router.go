// Package fastpath handles every message kind that can be answered within
// the webhook turn: reactions, interactive replies, unsupported media, quick
// text commands, and general text chat. Only general text reaches the
// inference backend; everything else is canned or derived locally.
package fastpath

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lingobot/internal/conversation"
	"github.com/lingobot/internal/event"
	"github.com/lingobot/internal/llm"
	"github.com/lingobot/internal/tasks"
	"github.com/lingobot/pkg/models"
)

// StatusProvider reports intake counters for the status command
type StatusProvider interface {
	Snapshot() (processed, duplicates, audioJobs uint64)
	Uptime() time.Duration
}

// Canned replies
const (
	UnsupportedMessage = "I can only work with text and voice notes for now. Send me a message or record yourself speaking! 🎙️"
	DegradedMessage    = "I'm having trouble thinking right now. Please try again in a minute. 🙏"
	FeedbackThanks     = "Thanks for the feedback! It helps me improve. 🙌"
)

const systemPrompt = "You are LingoBot, a friendly language-practice coach on WhatsApp. " +
	"Reply in the language the learner is practicing, keep answers short enough to read on a phone, " +
	"gently correct grammar or vocabulary mistakes, and end with a question that keeps the conversation going."

// supportedLanguages maps preference codes to display names. Row ids in the
// choose_language template are "lang_<code>".
var supportedLanguages = []struct {
	Code string
	Name string
}{
	{"es", "Spanish"},
	{"fr", "French"},
	{"de", "German"},
	{"it", "Italian"},
	{"pt", "Portuguese"},
	{"ja", "Japanese"},
}

// Options tunes the router
type Options struct {
	ContextPairs   int           // prior exchanges fed to the model
	PersistTimeout time.Duration // budget for detached store writes
}

// DefaultOptions matches the production deployment
func DefaultOptions() Options {
	return Options{
		ContextPairs:   2,
		PersistTimeout: 10 * time.Second,
	}
}

// Router is the synchronous message handler
type Router struct {
	backend llm.InferenceBackend
	store   conversation.Store
	tasks   *tasks.Supervisor
	status  StatusProvider
	opts    Options
	logger  zerolog.Logger
}

// NewRouter wires the fast path. backend should already be wrapped with
// retry handling.
func NewRouter(backend llm.InferenceBackend, store conversation.Store, supervisor *tasks.Supervisor, status StatusProvider, opts Options, logger zerolog.Logger) *Router {
	if opts.ContextPairs <= 0 {
		opts.ContextPairs = DefaultOptions().ContextPairs
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = DefaultOptions().PersistTimeout
	}
	return &Router{
		backend: backend,
		store:   store,
		tasks:   supervisor,
		status:  status,
		opts:    opts,
		logger:  logger,
	}
}

// Route handles one classified message and returns the reply
func (r *Router) Route(ctx context.Context, userID string, kind event.MessageKind) models.ProcessingResult {
	switch kind.Tag {
	case event.KindReaction:
		return r.handleReaction(kind)
	case event.KindInteractive:
		return r.handleInteractive(kind, userID)
	case event.KindUnsupported:
		return models.TextReply(UnsupportedMessage)
	default:
		return r.handleText(ctx, userID, kind.Body)
	}
}

func (r *Router) handleReaction(kind event.MessageKind) models.ProcessingResult {
	targetID, emoji := kind.TargetEventID, kind.Emoji
	r.tasks.Go("save-feedback", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), r.opts.PersistTimeout)
		defer cancel()
		return r.store.SaveFeedback(ctx, targetID, emoji)
	})
	return models.TemplateReply("custom_feedback")
}

func (r *Router) handleInteractive(kind event.MessageKind, userID string) models.ProcessingResult {
	id := kind.SelectionID
	switch {
	case strings.HasPrefix(id, "lang_"):
		return r.handleLanguageSelection(userID, strings.TrimPrefix(id, "lang_"), kind.SelectionTitle)
	case strings.HasPrefix(id, "feedback_"):
		return models.TextReply(FeedbackThanks)
	case strings.HasPrefix(id, "welcome_"):
		return models.TextReply("Great, let's get started! Tell me about your day in the language you're learning, or send a voice note. 🗣️")
	}

	r.logger.Warn().Str("selection_id", id).Msg("unrecognized interactive selection")
	return models.TextReply("Hmm, I didn't recognize that option. Type 'help' to see what I can do.")
}

func (r *Router) handleLanguageSelection(userID, code, title string) models.ProcessingResult {
	name := title
	if name == "" {
		name = languageName(code)
	}

	r.tasks.Go("save-preference", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), r.opts.PersistTimeout)
		defer cancel()
		return r.store.SavePreference(ctx, userID, code)
	})

	return models.TextReply(fmt.Sprintf("%s it is! From now on I'll coach you in %s. Send me a message or a voice note to practice. ✅", name, name))
}

func languageName(code string) string {
	for _, l := range supportedLanguages {
		if l.Code == code {
			return l.Name
		}
	}
	return code
}

func (r *Router) handleText(ctx context.Context, userID, body string) models.ProcessingResult {
	if reply, handled := r.quickCommand(body); handled {
		return reply
	}
	return r.handleChat(ctx, userID, body)
}

// handleChat is the general text path: bounded conversation context plus the
// current message, through the resilient inference client.
func (r *Router) handleChat(ctx context.Context, userID, body string) models.ProcessingResult {
	messages := []llm.Message{llm.System(systemPrompt)}

	pairs, err := r.store.GetRecentPairs(ctx, userID, r.opts.ContextPairs)
	if err != nil {
		// Degrade to a contextless prompt rather than failing the turn
		r.logger.Warn().Err(err).Str("user", userID).Msg("failed to load conversation context")
	}
	for _, p := range pairs {
		messages = append(messages, llm.User(p.UserMessage), llm.Assistant(p.BotResponse))
	}
	messages = append(messages, llm.User(body))

	completion, err := r.backend.Complete(ctx, messages, "")
	if err != nil {
		r.logger.Error().Err(err).Str("user", userID).Msg("inference failed after retries")
		return models.TextReply(DegradedMessage)
	}

	reply := llm.CleanResponse(completion.Content)
	if reply == "" {
		return models.TextReply(DegradedMessage)
	}

	result := models.TextReply(reply)
	result.ShouldPersist = true
	result.UserMessage = body
	return result
}
