// Package event models the inbound WhatsApp Cloud API webhook payload and
// derives a tagged message kind from it. The payload is opaque to the rest of
// the pipeline: everything downstream works off MessageKind and the narrow
// accessors here.
package event

import "encoding/json"

// WebhookPayload is the raw webhook body delivered by the platform
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry is one account-level notification batch
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change is one field change inside an entry
type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue carries the actual messages, contacts and delivery statuses
type ChangeValue struct {
	MessagingProduct string            `json:"messaging_product"`
	Metadata         Metadata          `json:"metadata"`
	Contacts         []Contact         `json:"contacts,omitempty"`
	Messages         []Message         `json:"messages,omitempty"`
	Statuses         []json.RawMessage `json:"statuses,omitempty"`
}

// Metadata identifies the receiving business phone number
type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// Contact is the sender profile attached to a message batch
type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// Message is one inbound message. Exactly one of the typed payload fields is
// populated, named by Type; unknown shapes leave them all nil.
type Message struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`

	Text        *TextBody       `json:"text,omitempty"`
	Audio       *Media          `json:"audio,omitempty"`
	Image       json.RawMessage `json:"image,omitempty"`
	Video       json.RawMessage `json:"video,omitempty"`
	Document    json.RawMessage `json:"document,omitempty"`
	Sticker     json.RawMessage `json:"sticker,omitempty"`
	Location    json.RawMessage `json:"location,omitempty"`
	Reaction    *Reaction       `json:"reaction,omitempty"`
	Interactive *Interactive    `json:"interactive,omitempty"`
	Context     *MessageContext `json:"context,omitempty"`
}

// TextBody is the body of a text message
type TextBody struct {
	Body string `json:"body"`
}

// Media describes an uploaded media object referenced by id
type Media struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	SHA256   string `json:"sha256,omitempty"`
	Voice    bool   `json:"voice,omitempty"`
}

// Reaction is an emoji reaction to an earlier message
type Reaction struct {
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
}

// Interactive is a button or list selection reply
type Interactive struct {
	Type        string          `json:"type"`
	ButtonReply *SelectionReply `json:"button_reply,omitempty"`
	ListReply   *SelectionReply `json:"list_reply,omitempty"`
}

// SelectionReply identifies which button or list row the user tapped
type SelectionReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// MessageContext links a message to the one it replies to
type MessageContext struct {
	From string `json:"from"`
	ID   string `json:"id"`
}

// FirstMessage returns the first message in the payload, if any. Status-only
// callbacks (delivery receipts) have no messages and return false.
func (p *WebhookPayload) FirstMessage() (*Message, bool) {
	if p == nil {
		return nil, false
	}
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			if len(change.Value.Messages) > 0 {
				return &change.Value.Messages[0], true
			}
		}
	}
	return nil, false
}

// SenderName returns the display name of the first contact, if present
func (p *WebhookPayload) SenderName() string {
	if p == nil {
		return ""
	}
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			if len(change.Value.Contacts) > 0 {
				return change.Value.Contacts[0].Profile.Name
			}
		}
	}
	return ""
}

// EventID returns the platform-assigned message id used for deduplication
func (m *Message) EventID() string {
	if m == nil {
		return ""
	}
	return m.ID
}

// SenderID returns the sender's account id
func (m *Message) SenderID() string {
	if m == nil {
		return ""
	}
	return m.From
}

// Selection returns the interactive selection id and title, total over
// malformed payloads
func (m *Message) Selection() (id, title string) {
	if m == nil || m.Interactive == nil {
		return "", ""
	}
	if m.Interactive.ButtonReply != nil {
		return m.Interactive.ButtonReply.ID, m.Interactive.ButtonReply.Title
	}
	if m.Interactive.ListReply != nil {
		return m.Interactive.ListReply.ID, m.Interactive.ListReply.Title
	}
	return "", ""
}
