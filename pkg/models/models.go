package models

import (
	"time"
)

// ResultKind identifies what the intake pipeline decided to send back
type ResultKind string

const (
	// ResultSkip means nothing is sent: duplicate event, status callback,
	// or a payload with no processable message
	ResultSkip ResultKind = "skip"
	// ResultText is a plain text reply
	ResultText ResultKind = "text"
	// ResultTemplate is a pre-approved message template reply
	ResultTemplate ResultKind = "template"
	// ResultButtons is an interactive button reply
	ResultButtons ResultKind = "buttons"
)

// ProcessingResult is produced exactly once per non-duplicate event and
// consumed by the response dispatcher.
type ProcessingResult struct {
	Kind          ResultKind    `json:"kind"`
	Message       string        `json:"message,omitempty"`  // text body for ResultText
	Template      string        `json:"template,omitempty"` // template name for ResultTemplate
	Buttons       *ButtonSpec   `json:"buttons,omitempty"`  // button payload for ResultButtons
	ShouldPersist bool          `json:"should_persist"`     // whether the exchange should be written to the conversation store
	Elapsed       time.Duration `json:"elapsed"`

	// Persistence context, set when ShouldPersist is true
	UserID      string `json:"user_id,omitempty"`
	UserMessage string `json:"user_message,omitempty"`
	EventID     string `json:"event_id,omitempty"`
}

// Skip returns the sentinel result for events that produce no reply
func Skip() ProcessingResult {
	return ProcessingResult{Kind: ResultSkip}
}

// TextReply builds a plain text result
func TextReply(message string) ProcessingResult {
	return ProcessingResult{Kind: ResultText, Message: message}
}

// TemplateReply builds a template result
func TemplateReply(name string) ProcessingResult {
	return ProcessingResult{Kind: ResultTemplate, Template: name}
}

// ButtonReply builds an interactive button result
func ButtonReply(spec ButtonSpec) ProcessingResult {
	return ProcessingResult{Kind: ResultButtons, Buttons: &spec}
}

// ButtonSpec describes an interactive reply-button message
type ButtonSpec struct {
	Body    string   `json:"body"`
	Buttons []Button `json:"buttons"`
}

// Button is a single interactive reply button
type Button struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ConversationPair is one user message / bot response exchange fetched from
// the conversation store. Read-only: used as bounded context for inference
// prompts, never mutated by the pipeline.
type ConversationPair struct {
	UserMessage string    `json:"user_message" db:"user_message"`
	BotResponse string    `json:"bot_response" db:"bot_response"`
	Timestamp   time.Time `json:"timestamp" db:"created_at"`
}
