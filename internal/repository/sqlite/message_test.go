package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/likey-social/likey/internal/apperror"
	"github.com/likey-social/likey/internal/repository"
)

func TestCreateAndGetMessage(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice", "Alice")
	bob := createTestUser(t, db, "bob", "Bob")
	conv := createTestConversation(t, db, alice.ID, bob.ID)

	msg := createTestMessage(t, db, conv.ID, alice.ID, "hello", time.Time{})
	if msg.ID == "" || msg.CreatedAt.IsZero() {
		t.Fatal("ID or CreatedAt not filled")
	}

	got, err := db.GetMessageByID(ctx, msg.ID)
	if err != nil {
		t.Fatalf("GetMessageByID: %v", err)
	}
	if got.Content != "hello" || got.Read {
		t.Errorf("message = %+v", got)
	}
	if got.Sender == nil || got.Sender.Username != "alice" {
		t.Errorf("sender annotation = %+v", got.Sender)
	}
	if got.EditedAt != nil {
		t.Errorf("fresh message has EditedAt %v", got.EditedAt)
	}
}

func TestListConversationMessagesOrderAndPaging(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice", "Alice")
	bob := createTestUser(t, db, "bob", "Bob")
	conv := createTestConversation(t, db, alice.ID, bob.ID)

	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	for i, content := range []string{"one", "two", "three"} {
		createTestMessage(t, db, conv.ID, alice.ID, content, base.Add(time.Duration(i)*time.Second))
	}

	msgs, err := db.ListConversationMessages(ctx, conv.ID, repository.ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("ListConversationMessages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	// Oldest first.
	for i, want := range []string{"one", "two", "three"} {
		if msgs[i].Content != want {
			t.Errorf("msgs[%d] = %q, want %q", i, msgs[i].Content, want)
		}
	}

	page, err := db.ListConversationMessages(ctx, conv.ID, repository.ListOptions{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("paged list: %v", err)
	}
	if len(page) != 1 || page[0].Content != "two" {
		t.Errorf("page = %+v, want just %q", page, "two")
	}
}

func TestUpdateMessageContent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice", "Alice")
	bob := createTestUser(t, db, "bob", "Bob")
	conv := createTestConversation(t, db, alice.ID, bob.ID)
	msg := createTestMessage(t, db, conv.ID, alice.ID, "original", time.Time{})

	editedAt := time.Date(2026, 2, 1, 10, 5, 0, 0, time.UTC)
	updated, err := db.UpdateMessageContent(ctx, msg.ID, "edited", editedAt)
	if err != nil {
		t.Fatalf("UpdateMessageContent: %v", err)
	}
	if updated.Content != "edited" {
		t.Errorf("content = %q", updated.Content)
	}
	if updated.EditedAt == nil || !updated.EditedAt.Equal(editedAt) {
		t.Errorf("EditedAt = %v, want %v", updated.EditedAt, editedAt)
	}

	if _, err := db.UpdateMessageContent(ctx, "missing", "x", editedAt); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("missing message: error = %v, want ErrNotFound", err)
	}
}

func TestDeleteMessage(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice", "Alice")
	bob := createTestUser(t, db, "bob", "Bob")
	conv := createTestConversation(t, db, alice.ID, bob.ID)
	msg := createTestMessage(t, db, conv.ID, alice.ID, "bye", time.Time{})

	if err := db.DeleteMessage(ctx, msg.ID); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if _, err := db.GetMessageByID(ctx, msg.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Error("message still readable after delete")
	}
	if err := db.DeleteMessage(ctx, msg.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second delete: error = %v, want ErrNotFound", err)
	}
}

func TestMarkMessagesReadAndCount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice", "Alice")
	bob := createTestUser(t, db, "bob", "Bob")
	conv := createTestConversation(t, db, alice.ID, bob.ID)

	createTestMessage(t, db, conv.ID, bob.ID, "from bob 1", time.Time{})
	createTestMessage(t, db, conv.ID, bob.ID, "from bob 2", time.Time{})
	createTestMessage(t, db, conv.ID, alice.ID, "from alice", time.Time{})

	count, err := db.CountUnreadMessages(ctx, []string{conv.ID}, alice.ID)
	if err != nil {
		t.Fatalf("CountUnreadMessages: %v", err)
	}
	// Alice's own message never counts against her.
	if count != 2 {
		t.Errorf("unread = %d, want 2", count)
	}

	// Marking twice is safe and only touches the other side's messages.
	for i := 0; i < 2; i++ {
		if err := db.MarkMessagesRead(ctx, conv.ID, alice.ID); err != nil {
			t.Fatalf("MarkMessagesRead call %d: %v", i+1, err)
		}
	}

	count, _ = db.CountUnreadMessages(ctx, []string{conv.ID}, alice.ID)
	if count != 0 {
		t.Errorf("unread after mark = %d, want 0", count)
	}

	// Bob still sees alice's message as unread.
	bobCount, _ := db.CountUnreadMessages(ctx, []string{conv.ID}, bob.ID)
	if bobCount != 1 {
		t.Errorf("bob unread = %d, want 1", bobCount)
	}
}

func TestCountUnreadMessagesNoConversations(t *testing.T) {
	db := newTestDB(t)

	count, err := db.CountUnreadMessages(context.Background(), nil, "anyone")
	if err != nil || count != 0 {
		t.Errorf("empty scope: (%d, %v), want (0, nil)", count, err)
	}
}
