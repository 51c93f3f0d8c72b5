package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/likey-social/likey/internal/model"
)

// newTestDB opens a fresh in-memory database per test. Fast, isolated, and
// destroyed when the connection closes.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, username, displayName string) *model.User {
	t.Helper()
	u := &model.User{
		Email:       username + "@example.com",
		Username:    username,
		DisplayName: displayName,
	}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to create test user %s: %v", username, err)
	}
	return u
}

func createTestConversation(t *testing.T, db *DB, user1ID, user2ID string) *model.Conversation {
	t.Helper()
	c := &model.Conversation{User1ID: user1ID, User2ID: user2ID}
	if err := db.CreateConversation(context.Background(), c); err != nil {
		t.Fatalf("failed to create test conversation: %v", err)
	}
	return c
}

func createTestMessage(t *testing.T, db *DB, convID, senderID, content string, createdAt time.Time) *model.Message {
	t.Helper()
	m := &model.Message{
		ConversationID: convID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      createdAt,
	}
	if err := db.CreateMessage(context.Background(), m); err != nil {
		t.Fatalf("failed to create test message: %v", err)
	}
	return m
}
