package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/lingobot/pkg/models"
)

// MemoryStore is an in-process Store. It backs deployments without a
// database and the test suite; history does not survive a restart.
type MemoryStore struct {
	mu          sync.Mutex
	pairs       map[string][]models.ConversationPair
	preferences map[string]string
	feedback    map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pairs:       make(map[string][]models.ConversationPair),
		preferences: make(map[string]string),
		feedback:    make(map[string]string),
	}
}

func (s *MemoryStore) GetRecentPairs(_ context.Context, userID string, n int) ([]models.ConversationPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.pairs[userID]
	if len(all) > n {
		all = all[len(all)-n:]
	}
	out := make([]models.ConversationPair, len(all))
	copy(out, all)
	return out, nil
}

func (s *MemoryStore) SaveMessage(_ context.Context, userID, text string) error {
	// Lone messages carry no bot response and never enter history pairs
	return nil
}

func (s *MemoryStore) SaveResponse(_ context.Context, userID, userText, botText, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pairs[userID] = append(s.pairs[userID], models.ConversationPair{
		UserMessage: userText,
		BotResponse: botText,
		Timestamp:   time.Now(),
	})
	return nil
}

func (s *MemoryStore) GetPreference(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preferences[userID], nil
}

func (s *MemoryStore) SavePreference(_ context.Context, userID, lang string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preferences[userID] = lang
	return nil
}

func (s *MemoryStore) SaveFeedback(_ context.Context, eventID, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback[eventID] = value
	return nil
}

// Feedback reports the stored feedback value for a message, for tests.
func (s *MemoryStore) Feedback(eventID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.feedback[eventID]
}
