package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/likey-social/likey/internal/apperror"
	"github.com/likey-social/likey/internal/model"
	"github.com/likey-social/likey/internal/realtime"
	"github.com/likey-social/likey/internal/repository"
)

// memStore is an in-memory implementation of the repository interfaces.
// Services under test get this instead of the sqlite implementation; the
// mutex matters because push-channel callbacks re-fetch from another
// goroutine.
type memStore struct {
	mu            sync.Mutex
	users         map[string]*model.User
	conversations map[string]*model.Conversation
	messages      map[string]*model.Message
	notifications map[string]*model.Notification
	follows       map[string]bool // "follower|following"
	nextID        int

	// createConversationHook runs before a conversation insert; tests use it
	// to stage a concurrent first-contact request.
	createConversationHook func()
}

func newMemStore() *memStore {
	return &memStore{
		users:         make(map[string]*model.User),
		conversations: make(map[string]*model.Conversation),
		messages:      make(map[string]*model.Message),
		notifications: make(map[string]*model.Notification),
		follows:       make(map[string]bool),
	}
}

func (m *memStore) id() string {
	m.nextID++
	return fmt.Sprintf("mock-%d", m.nextID)
}

// --- UserRepository ---

func (m *memStore) CreateUser(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	user.ID = m.id()
	user.Username = strings.ToLower(user.Username)
	user.CreatedAt = now
	user.UpdatedAt = now
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *memStore) UpsertGitHubUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	for _, u := range m.users {
		if u.GitHubID == user.GitHubID {
			u.Email = user.Email
			u.AvatarURL = user.AvatarURL
			u.UpdatedAt = time.Now().UTC()
			*user = *u
			m.mu.Unlock()
			return nil
		}
	}
	m.mu.Unlock()
	return m.CreateUser(ctx, user)
}

func (m *memStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	return &result, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *memStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	folded := strings.ToLower(username)
	for _, u := range m.users {
		if u.Username == folded {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (m *memStore) UpdateProfile(_ context.Context, id string, upd model.ProfileUpdate) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	if upd.DisplayName != nil {
		u.DisplayName = *upd.DisplayName
	}
	if upd.Bio != nil {
		u.Bio = *upd.Bio
	}
	if upd.AvatarURL != nil {
		u.AvatarURL = *upd.AvatarURL
	}
	u.UpdatedAt = time.Now().UTC()
	result := *u
	return &result, nil
}

func (m *memStore) UpdatePasswordHash(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memStore) summary(id string) *model.UserSummary {
	if u, ok := m.users[id]; ok {
		return u.Summary()
	}
	return nil
}

// --- ConversationRepository ---

func (m *memStore) FindConversationByParticipants(_ context.Context, a, b string) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.conversations {
		if (c.User1ID == a && c.User2ID == b) || (c.User1ID == b && c.User2ID == a) {
			result := *c
			return &result, nil
		}
	}
	return nil, apperror.NotFound("conversation", a+"/"+b)
}

func (m *memStore) CreateConversation(_ context.Context, conv *model.Conversation) error {
	if m.createConversationHook != nil {
		m.createConversationHook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// One conversation per unordered pair, like the unique index in sqlite.
	for _, c := range m.conversations {
		if (c.User1ID == conv.User1ID && c.User2ID == conv.User2ID) ||
			(c.User1ID == conv.User2ID && c.User2ID == conv.User1ID) {
			return apperror.Conflict("Conversation already exists for this pair")
		}
	}
	now := time.Now().UTC()
	conv.ID = m.id()
	conv.CreatedAt = now
	conv.LastMessageAt = now
	stored := *conv
	m.conversations[conv.ID] = &stored
	return nil
}

func (m *memStore) GetConversationByID(_ context.Context, id string) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return nil, apperror.NotFound("conversation", id)
	}
	result := *c
	return &result, nil
}

func (m *memStore) ListConversationsForUser(_ context.Context, userID string) ([]model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Conversation
	for _, c := range m.conversations {
		if !c.HasParticipant(userID) {
			continue
		}
		conv := *c
		conv.OtherUser = m.summary(c.OtherParticipant(userID))
		for _, msg := range m.messages {
			if msg.ConversationID != c.ID {
				continue
			}
			if conv.LastMessage == nil || msg.CreatedAt.After(conv.LastMessage.CreatedAt) {
				last := *msg
				conv.LastMessage = &last
			}
		}
		result = append(result, conv)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastMessageAt.After(result[j].LastMessageAt)
	})
	return result, nil
}

func (m *memStore) ConversationIDsForUser(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, c := range m.conversations {
		if c.HasParticipant(userID) {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

func (m *memStore) TouchLastMessage(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return apperror.NotFound("conversation", id)
	}
	c.LastMessageAt = at
	return nil
}

// --- MessageRepository ---

func (m *memStore) CreateMessage(_ context.Context, msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = m.id()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	stored := *msg
	m.messages[msg.ID] = &stored
	return nil
}

func (m *memStore) GetMessageByID(_ context.Context, id string) (*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return nil, apperror.NotFound("message", id)
	}
	result := *msg
	result.Sender = m.summary(msg.SenderID)
	return &result, nil
}

func (m *memStore) ListConversationMessages(_ context.Context, conversationID string, opts repository.ListOptions) ([]model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Message
	for _, msg := range m.messages {
		if msg.ConversationID != conversationID {
			continue
		}
		item := *msg
		item.Sender = m.summary(msg.SenderID)
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if opts.Offset >= len(result) {
		return []model.Message{}, nil
	}
	result = result[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(result) {
		result = result[:opts.Limit]
	}
	return result, nil
}

func (m *memStore) UpdateMessageContent(_ context.Context, id, content string, editedAt time.Time) (*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return nil, apperror.NotFound("message", id)
	}
	msg.Content = content
	msg.EditedAt = &editedAt
	result := *msg
	result.Sender = m.summary(msg.SenderID)
	return &result, nil
}

func (m *memStore) DeleteMessage(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.messages[id]; !ok {
		return apperror.NotFound("message", id)
	}
	delete(m.messages, id)
	return nil
}

func (m *memStore) MarkMessagesRead(_ context.Context, conversationID, readerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID && msg.SenderID != readerID {
			msg.Read = true
		}
	}
	return nil
}

func (m *memStore) CountUnreadMessages(_ context.Context, conversationIDs []string, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inScope := make(map[string]bool, len(conversationIDs))
	for _, id := range conversationIDs {
		inScope[id] = true
	}
	count := 0
	for _, msg := range m.messages {
		if inScope[msg.ConversationID] && msg.SenderID != userID && !msg.Read {
			count++
		}
	}
	return count, nil
}

// --- NotificationRepository ---

func (m *memStore) CreateNotification(_ context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = m.id()
	n.CreatedAt = time.Now().UTC()
	stored := *n
	m.notifications[n.ID] = &stored
	return nil
}

func (m *memStore) GetNotificationByID(_ context.Context, id string) (*model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return nil, apperror.NotFound("notification", id)
	}
	result := *n
	result.RelatedUser = m.summary(n.RelatedUserID)
	return &result, nil
}

func (m *memStore) ListNotificationsForUser(_ context.Context, userID string, limit int) ([]model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Notification
	for _, n := range m.notifications {
		if n.UserID != userID {
			continue
		}
		item := *n
		item.RelatedUser = m.summary(n.RelatedUserID)
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

func (m *memStore) MarkNotificationRead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return apperror.NotFound("notification", id)
	}
	n.Read = true
	return nil
}

func (m *memStore) MarkAllNotificationsRead(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.UserID == userID {
			n.Read = true
		}
	}
	return nil
}

func (m *memStore) CountUnreadNotifications(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

// --- FollowRepository ---

func followKey(followerID, followingID string) string {
	return followerID + "|" + followingID
}

func (m *memStore) CreateFollow(_ context.Context, followerID, followingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.follows[followKey(followerID, followingID)] = true
	return nil
}

func (m *memStore) DeleteFollow(_ context.Context, followerID, followingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.follows, followKey(followerID, followingID))
	return nil
}

func (m *memStore) FollowExists(_ context.Context, followerID, followingID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.follows[followKey(followerID, followingID)], nil
}

func (m *memStore) FollowingAmong(_ context.Context, followerID string, candidateIDs []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var following []string
	for _, id := range candidateIDs {
		if m.follows[followKey(followerID, id)] {
			following = append(following, id)
		}
	}
	return following, nil
}

// --- shared test helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestHub(t *testing.T) *realtime.Hub {
	t.Helper()
	h := realtime.NewHub(testLogger())
	t.Cleanup(h.Shutdown)
	return h
}

// seedUser creates a user directly in the store.
func seedUser(t *testing.T, store *memStore, username, displayName string) *model.User {
	t.Helper()
	u := &model.User{
		Email:       username + "@example.com",
		Username:    username,
		DisplayName: displayName,
	}
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seeding user %s: %v", username, err)
	}
	return u
}

// waitUntil polls cond until it holds or the deadline passes. Used for
// asserting on push-channel deliveries.
func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
