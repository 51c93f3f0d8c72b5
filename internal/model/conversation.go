package model

import "time"

// Conversation is a persistent 1:1 channel between two users.
//
// The participant pair is unordered: at most one conversation exists for any
// two users regardless of who initiated it, and self-pairs are rejected.
// Conversations are created lazily on the first message attempt and never
// deleted.
//
// OtherUser and LastMessage are view annotations filled in by the service
// layer for the caller's perspective; they are not stored columns.
type Conversation struct {
	ID            string    `json:"id"`
	User1ID       string    `json:"user1_id"`
	User2ID       string    `json:"user2_id"`
	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`

	OtherUser   *UserSummary `json:"other_user,omitempty"`
	LastMessage *Message     `json:"last_message,omitempty"`
}

// HasParticipant reports whether userID is one of the two fixed members.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// OtherParticipant returns the participant that is not userID.
// Callers must have checked membership first.
func (c *Conversation) OtherParticipant(userID string) string {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}
