package conversation

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lingobot/pkg/models"
)

// PostgresStore implements Store over a sql.DB
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// GetRecentPairs implements Store
func (s *PostgresStore) GetRecentPairs(ctx context.Context, userID string, n int) ([]models.ConversationPair, error) {
	query := `
		SELECT user_message, bot_response, created_at
		FROM conversations
		WHERE user_id = $1 AND bot_response IS NOT NULL
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, userID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation history: %w", err)
	}
	defer rows.Close()

	var pairs []models.ConversationPair
	for rows.Next() {
		var p models.ConversationPair
		if err := rows.Scan(&p.UserMessage, &p.BotResponse, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query returns newest first; callers want chronological order
	for i, j := 0, len(pairs)-1; i < j; i, j = i+1, j-1 {
		pairs[i], pairs[j] = pairs[j], pairs[i]
	}

	return pairs, nil
}

// SaveMessage implements Store
func (s *PostgresStore) SaveMessage(ctx context.Context, userID, text string) error {
	query := `INSERT INTO conversations (user_id, user_message) VALUES ($1, $2)`
	if _, err := s.db.ExecContext(ctx, query, userID, text); err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// SaveResponse implements Store
func (s *PostgresStore) SaveResponse(ctx context.Context, userID, userText, botText, eventID string) error {
	query := `
		INSERT INTO conversations (user_id, user_message, bot_response, event_id)
		VALUES ($1, $2, $3, NULLIF($4, ''))
	`
	if _, err := s.db.ExecContext(ctx, query, userID, userText, botText, eventID); err != nil {
		return fmt.Errorf("failed to save response: %w", err)
	}
	return nil
}

// GetPreference implements Store
func (s *PostgresStore) GetPreference(ctx context.Context, userID string) (string, error) {
	query := `SELECT language_code FROM user_preferences WHERE user_id = $1`

	var lang string
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&lang)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get preference: %w", err)
	}
	return lang, nil
}

// SavePreference implements Store
func (s *PostgresStore) SavePreference(ctx context.Context, userID, lang string) error {
	query := `
		INSERT INTO user_preferences (user_id, language_code)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET language_code = EXCLUDED.language_code, updated_at = NOW()
	`
	if _, err := s.db.ExecContext(ctx, query, userID, lang); err != nil {
		return fmt.Errorf("failed to save preference: %w", err)
	}
	return nil
}

// SaveFeedback implements Store
func (s *PostgresStore) SaveFeedback(ctx context.Context, eventID, value string) error {
	query := `
		INSERT INTO message_feedback (event_id, feedback)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO UPDATE SET feedback = EXCLUDED.feedback
	`
	if _, err := s.db.ExecContext(ctx, query, eventID, value); err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}
	return nil
}
