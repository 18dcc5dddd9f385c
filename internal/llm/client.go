// Package llm talks to the model-inference backend. All calls from the
// pipeline go through ResilientClient, which adds classification-aware
// retries and a bounded timeout.
package llm

import (
	"context"
)

// Role values for prompt messages
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one prompt message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage reports token accounting when the provider supplies it
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Completion is the model's reply
type Completion struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// InferenceBackend generates a completion for a bounded prompt. modelType
// selects between configured model variants (e.g. a fast and a thorough one);
// an empty string uses the default.
type InferenceBackend interface {
	Complete(ctx context.Context, messages []Message, modelType string) (*Completion, error)
}

// System builds a system prompt message
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User builds a user prompt message
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Assistant builds a prior-model-turn message for conversation context
func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}
