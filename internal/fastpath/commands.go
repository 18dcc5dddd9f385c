package fastpath

import (
	"fmt"
	"strings"
	"time"

	"github.com/lingobot/pkg/models"
)

const helpMessage = `Here's what I can do:

💬 Send me a text in the language you're practicing and I'll reply with corrections and keep the conversation going.
🎙️ Send a voice note and I'll transcribe it, then coach you on what you said.
👍 React to any of my replies to leave feedback.

Commands:
• help — this message
• status — service status
• languages — languages I support
• set language — pick your practice language`

var greetingWords = map[string]struct{}{
	"hi":    {},
	"hello": {},
	"hey":   {},
	"hola":  {},
	"yo":    {},
}

// quickCommand answers the canned text subset. These replies never touch the
// inference backend; handled reports whether body matched one.
func (r *Router) quickCommand(body string) (reply models.ProcessingResult, handled bool) {
	normalized := strings.ToLower(strings.TrimSpace(body))

	switch normalized {
	case "":
		// Malformed payloads classify as empty text; answer without burning
		// an inference call
		return models.TextReply("I didn't catch that. Type 'help' to see what I can do."), true
	case "help":
		return models.TextReply(helpMessage), true
	case "status":
		return r.statusReply(), true
	case "languages":
		return models.TextReply(languagesMessage()), true
	}

	if strings.HasPrefix(normalized, "set language") {
		return models.TemplateReply("choose_language"), true
	}

	if _, ok := greetingWords[strings.TrimRight(normalized, "!.")]; ok {
		return models.TextReply("Hey! 👋 Ready to practice? Send me a message or a voice note in your target language. Type 'help' if you're new here."), true
	}

	return models.ProcessingResult{}, false
}

func (r *Router) statusReply() models.ProcessingResult {
	if r.status == nil {
		return models.TextReply("Running. ✅")
	}
	processed, duplicates, audioJobs := r.status.Snapshot()
	return models.TextReply(fmt.Sprintf(
		"All systems go ✅\nUptime: %s\nMessages processed: %d\nDuplicates skipped: %d\nVoice notes handled: %d",
		r.status.Uptime().Round(time.Second), processed, duplicates, audioJobs,
	))
}

func languagesMessage() string {
	var b strings.Builder
	b.WriteString("I can coach you in:\n")
	for _, l := range supportedLanguages {
		fmt.Fprintf(&b, "• %s (%s)\n", l.Name, l.Code)
	}
	b.WriteString("\nType 'set language' to pick one.")
	return b.String()
}
