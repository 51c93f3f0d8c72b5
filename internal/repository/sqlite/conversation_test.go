package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/likey-social/likey/internal/apperror"
	"github.com/likey-social/likey/internal/model"
)

func TestFindConversationByParticipantsBothOrders(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice", "Alice")
	bob := createTestUser(t, db, "bob", "Bob")
	conv := createTestConversation(t, db, alice.ID, bob.ID)

	// The stored order and the reversed order both find the same row.
	for _, pair := range [][2]string{{alice.ID, bob.ID}, {bob.ID, alice.ID}} {
		got, err := db.FindConversationByParticipants(ctx, pair[0], pair[1])
		if err != nil {
			t.Fatalf("FindConversationByParticipants(%s, %s): %v", pair[0], pair[1], err)
		}
		if got.ID != conv.ID {
			t.Errorf("pair (%s, %s) found %s, want %s", pair[0], pair[1], got.ID, conv.ID)
		}
	}
}

func TestFindConversationByParticipantsNotFound(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice", "Alice")
	bob := createTestUser(t, db, "bob", "Bob")

	_, err := db.FindConversationByParticipants(context.Background(), alice.ID, bob.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestCreateConversationRejectsDuplicatePair(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice", "Alice")
	bob := createTestUser(t, db, "bob", "Bob")
	createTestConversation(t, db, alice.ID, bob.ID)

	// The unique index on the normalized pair rejects a second row even with
	// the participants swapped, so a racing find-then-create cannot insert
	// twice.
	err := db.CreateConversation(ctx, &model.Conversation{
		User1ID: bob.ID,
		User2ID: alice.ID,
	})
	if err == nil {
		t.Error("duplicate pair accepted")
	}
}

func TestCreateConversationRejectsSelfPair(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice", "Alice")

	err := db.CreateConversation(context.Background(), &model.Conversation{
		User1ID: alice.ID,
		User2ID: alice.ID,
	})
	if err == nil {
		t.Error("self-pair conversation accepted")
	}
}

func TestListConversationsForUserAnnotatesAndOrders(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice", "Alice")
	bob := createTestUser(t, db, "bob", "Bob")
	carol := createTestUser(t, db, "carol", "Carol")

	withBob := createTestConversation(t, db, alice.ID, bob.ID)
	withCarol := createTestConversation(t, db, carol.ID, alice.ID)

	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	createTestMessage(t, db, withBob.ID, bob.ID, "old", base)
	createTestMessage(t, db, withBob.ID, bob.ID, "newest with bob", base.Add(time.Minute))
	createTestMessage(t, db, withCarol.ID, alice.ID, "hi carol", base.Add(2*time.Minute))

	// Activity ordering follows last_message_at.
	if err := db.TouchLastMessage(ctx, withBob.ID, base.Add(time.Minute)); err != nil {
		t.Fatalf("TouchLastMessage: %v", err)
	}
	if err := db.TouchLastMessage(ctx, withCarol.ID, base.Add(2*time.Minute)); err != nil {
		t.Fatalf("TouchLastMessage: %v", err)
	}

	convs, err := db.ListConversationsForUser(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListConversationsForUser: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("got %d conversations, want 2", len(convs))
	}

	// Most recently active first.
	if convs[0].ID != withCarol.ID {
		t.Errorf("first conversation = %s, want most recent %s", convs[0].ID, withCarol.ID)
	}

	// Annotated from the caller's perspective regardless of storage order.
	if convs[0].OtherUser == nil || convs[0].OtherUser.Username != "carol" {
		t.Errorf("conversation with carol: OtherUser = %+v", convs[0].OtherUser)
	}
	if convs[1].OtherUser == nil || convs[1].OtherUser.Username != "bob" {
		t.Errorf("conversation with bob: OtherUser = %+v", convs[1].OtherUser)
	}

	if convs[1].LastMessage == nil || convs[1].LastMessage.Content != "newest with bob" {
		t.Errorf("LastMessage = %+v, want the newest message", convs[1].LastMessage)
	}
}

func TestListConversationsForUserEmptyConversation(t *testing.T) {
	db := newTestDB(t)

	alice := createTestUser(t, db, "alice", "Alice")
	bob := createTestUser(t, db, "bob", "Bob")
	createTestConversation(t, db, alice.ID, bob.ID)

	convs, err := db.ListConversationsForUser(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("ListConversationsForUser: %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("got %d conversations, want 1", len(convs))
	}
	if convs[0].LastMessage != nil {
		t.Errorf("empty conversation has LastMessage %+v", convs[0].LastMessage)
	}
}

func TestConversationIDsForUser(t *testing.T) {
	db := newTestDB(t)

	alice := createTestUser(t, db, "alice", "Alice")
	bob := createTestUser(t, db, "bob", "Bob")
	carol := createTestUser(t, db, "carol", "Carol")

	createTestConversation(t, db, alice.ID, bob.ID)
	createTestConversation(t, db, carol.ID, alice.ID)
	createTestConversation(t, db, bob.ID, carol.ID) // not alice's

	ids, err := db.ConversationIDsForUser(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("ConversationIDsForUser: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("got %d ids, want 2", len(ids))
	}
}
