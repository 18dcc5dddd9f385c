package event

// KindTag identifies the shape of an inbound message
type KindTag int

const (
	KindText KindTag = iota
	KindAudio
	KindReaction
	KindInteractive
	KindUnsupported
)

func (t KindTag) String() string {
	switch t {
	case KindAudio:
		return "audio"
	case KindReaction:
		return "reaction"
	case KindInteractive:
		return "interactive"
	case KindUnsupported:
		return "unsupported"
	default:
		return "text"
	}
}

// MessageKind is the tagged classification of an inbound message. Derived
// once per event and immutable afterward; only the fields for the active tag
// are populated.
type MessageKind struct {
	Tag KindTag

	// KindText
	Body string

	// KindAudio
	MediaID  string
	MimeType string

	// KindReaction
	TargetEventID string
	Emoji         string

	// KindInteractive
	SelectionID    string
	SelectionTitle string

	// KindUnsupported
	Detail string
}

// Classify derives the MessageKind for a message. Total: a nil or malformed
// message classifies as empty text so the pipeline degrades instead of
// failing. Priority when multiple payloads are present:
// reaction > interactive > audio > unsupported media > text.
func Classify(m *Message) MessageKind {
	if m == nil {
		return MessageKind{Tag: KindText, Body: ""}
	}

	if m.Reaction != nil {
		return MessageKind{
			Tag:           KindReaction,
			TargetEventID: m.Reaction.MessageID,
			Emoji:         m.Reaction.Emoji,
		}
	}

	if m.Interactive != nil {
		id, title := m.Selection()
		return MessageKind{
			Tag:            KindInteractive,
			SelectionID:    id,
			SelectionTitle: title,
		}
	}

	if m.Audio != nil {
		return MessageKind{
			Tag:      KindAudio,
			MediaID:  m.Audio.ID,
			MimeType: m.Audio.MimeType,
		}
	}

	if detail := unsupportedDetail(m); detail != "" {
		return MessageKind{Tag: KindUnsupported, Detail: detail}
	}

	if m.Text != nil {
		return MessageKind{Tag: KindText, Body: m.Text.Body}
	}

	return MessageKind{Tag: KindText, Body: ""}
}

func unsupportedDetail(m *Message) string {
	switch {
	case len(m.Image) > 0:
		return "image"
	case len(m.Video) > 0:
		return "video"
	case len(m.Document) > 0:
		return "document"
	case len(m.Sticker) > 0:
		return "sticker"
	case len(m.Location) > 0:
		return "location"
	}
	return ""
}
