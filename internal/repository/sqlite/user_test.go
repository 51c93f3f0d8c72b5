package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/likey-social/likey/internal/apperror"
	"github.com/likey-social/likey/internal/model"
)

func TestCreateUserFillsIDAndTimestamps(t *testing.T) {
	db := newTestDB(t)

	u := &model.User{Email: "a@example.com", Username: "Alice", DisplayName: "Alice"}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if u.ID == "" {
		t.Error("ID not filled")
	}
	if u.CreatedAt.IsZero() || u.UpdatedAt.IsZero() {
		t.Error("timestamps not filled")
	}
	if u.Username != "alice" {
		t.Errorf("username = %q, want case-folded %q", u.Username, "alice")
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := &model.User{Email: "a@example.com", Username: "alice", DisplayName: "Alice"}
	if err := db.CreateUser(ctx, first); err != nil {
		t.Fatalf("first CreateUser: %v", err)
	}

	dup := &model.User{Email: "a@example.com", Username: "other", DisplayName: "Other"}
	if err := db.CreateUser(ctx, dup); err == nil {
		t.Error("duplicate email accepted")
	}
}

func TestGetUserByUsernameCaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "alice", "Alice")

	got, err := db.GetUserByUsername(context.Background(), "ALICE")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("got user %s, want %s", got.ID, created.ID)
	}
}

func TestGetUserByIDNotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestUpsertGitHubUserKeepsInternalID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := &model.User{
		GitHubID:    4242,
		Username:    "octo",
		DisplayName: "octo",
		Email:       "octo@example.com",
		AvatarURL:   "https://a/1.png",
	}
	if err := db.UpsertGitHubUser(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second := &model.User{
		GitHubID:    4242,
		Username:    "renamed",
		DisplayName: "renamed",
		Email:       "new@example.com",
		AvatarURL:   "https://a/2.png",
	}
	if err := db.UpsertGitHubUser(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("internal ID changed: %s -> %s", first.ID, second.ID)
	}
	// Only the GitHub-owned fields refresh; the username stays.
	if second.Username != "octo" {
		t.Errorf("username = %q, want original %q", second.Username, "octo")
	}
	if second.Email != "new@example.com" || second.AvatarURL != "https://a/2.png" {
		t.Errorf("GitHub fields not refreshed: %q %q", second.Email, second.AvatarURL)
	}
}

func TestUpdateProfilePartial(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "alice", "Alice")

	bio := "hello"
	updated, err := db.UpdateProfile(context.Background(), u.ID, model.ProfileUpdate{Bio: &bio})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}

	if updated.Bio != "hello" {
		t.Errorf("bio = %q", updated.Bio)
	}
	// Fields left nil stay untouched.
	if updated.DisplayName != "Alice" {
		t.Errorf("display name changed: %q", updated.DisplayName)
	}
}

func TestUpdatePasswordHash(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "alice", "Alice")

	if err := db.UpdatePasswordHash(ctx, u.ID, "new-hash"); err != nil {
		t.Fatalf("UpdatePasswordHash: %v", err)
	}

	got, _ := db.GetUserByID(ctx, u.ID)
	if got.PasswordHash != "new-hash" {
		t.Errorf("hash = %q", got.PasswordHash)
	}

	if err := db.UpdatePasswordHash(ctx, "missing", "x"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("missing user: error = %v, want ErrNotFound", err)
	}
}
