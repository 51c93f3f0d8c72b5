package model

import "time"

// Message is a single message inside a conversation.
//
// Content is always stored trimmed and non-empty. EditedAt is set the first
// time the sender edits the message and ForwardedFrom holds the source
// message ID when the message was forwarded from another conversation.
//
// Sender is a view annotation (the sender's profile summary) filled in by
// the repository's annotated queries, mirroring how the UI consumes messages.
type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	Content        string     `json:"content"`
	Read           bool       `json:"read"`
	CreatedAt      time.Time  `json:"created_at"`
	EditedAt       *time.Time `json:"edited_at,omitempty"`
	ForwardedFrom  string     `json:"forwarded_from,omitempty"`

	Sender *UserSummary `json:"sender,omitempty"`
}
