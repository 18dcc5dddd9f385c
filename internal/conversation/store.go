// Package conversation persists chat history, language preferences, and
// reaction feedback. The pipeline treats it as append/upsert-only and
// best-effort: persistence failures are logged, never surfaced to users.
package conversation

import (
	"context"

	"github.com/lingobot/pkg/models"
)

// Store is the persistence surface consumed by the pipeline
type Store interface {
	// GetRecentPairs returns up to n most recent exchanges, oldest first
	GetRecentPairs(ctx context.Context, userID string, n int) ([]models.ConversationPair, error)

	// SaveMessage records a user message without a response yet
	SaveMessage(ctx context.Context, userID, text string) error

	// SaveResponse records a completed exchange. eventID may be empty.
	SaveResponse(ctx context.Context, userID, userText, botText, eventID string) error

	// GetPreference returns the user's language code, or "" if unset
	GetPreference(ctx context.Context, userID string) (string, error)

	// SavePreference upserts the user's language code
	SavePreference(ctx context.Context, userID, lang string) error

	// SaveFeedback records an emoji reaction against the message it targets
	SaveFeedback(ctx context.Context, eventID, value string) error
}
