// Package repository defines the data-access interfaces consumed by the
// service layer. The sqlite subpackage provides the concrete implementation;
// service tests substitute in-memory mocks.
//
// Method names are entity-qualified (CreateUser, CreateMessage, ...) because
// one *sqlite.DB implements every interface here.
package repository

import (
	"context"
	"time"

	"github.com/likey-social/likey/internal/model"
)

// ListOptions carries pagination for list queries.
type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository manages user accounts and profiles.
type UserRepository interface {
	// CreateUser inserts a new user, filling ID and timestamps.
	CreateUser(ctx context.Context, user *model.User) error
	// UpsertGitHubUser inserts or updates a user keyed by GitHubID, keeping
	// the existing internal ID on update.
	UpsertGitHubUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// GetUserByUsername looks up the case-folded username.
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	// UpdateProfile applies the non-nil fields and returns the updated user.
	UpdateProfile(ctx context.Context, id string, upd model.ProfileUpdate) (*model.User, error)
	// UpdatePasswordHash replaces the stored password hash.
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

// ConversationRepository manages 1:1 conversations.
type ConversationRepository interface {
	// FindConversationByParticipants looks up the conversation for the
	// unordered pair {a, b}, checking both storage orders. Returns
	// apperror.ErrNotFound when no conversation exists.
	FindConversationByParticipants(ctx context.Context, a, b string) (*model.Conversation, error)
	// CreateConversation inserts a conversation, filling ID and timestamps.
	CreateConversation(ctx context.Context, conv *model.Conversation) error
	GetConversationByID(ctx context.Context, id string) (*model.Conversation, error)
	// ListConversationsForUser returns every conversation the user
	// participates in, ordered by last activity descending, each annotated
	// with the other participant's summary and the most recent message
	// (nil when the conversation is empty).
	ListConversationsForUser(ctx context.Context, userID string) ([]model.Conversation, error)
	// ConversationIDsForUser returns just the conversation IDs.
	ConversationIDsForUser(ctx context.Context, userID string) ([]string, error)
	// TouchLastMessage bumps the conversation's last-activity timestamp.
	TouchLastMessage(ctx context.Context, id string, at time.Time) error
}

// MessageRepository manages messages within conversations.
type MessageRepository interface {
	// CreateMessage inserts a message, filling ID and CreatedAt.
	CreateMessage(ctx context.Context, msg *model.Message) error
	// GetMessageByID returns the message annotated with the sender summary.
	GetMessageByID(ctx context.Context, id string) (*model.Message, error)
	// ListConversationMessages returns messages oldest-first, annotated
	// with sender summaries, honouring limit/offset.
	ListConversationMessages(ctx context.Context, conversationID string, opts ListOptions) ([]model.Message, error)
	// UpdateMessageContent sets new content and the edited timestamp,
	// returning the updated annotated message.
	UpdateMessageContent(ctx context.Context, id, content string, editedAt time.Time) (*model.Message, error)
	DeleteMessage(ctx context.Context, id string) error
	// MarkMessagesRead flags every unread message in the conversation not
	// sent by readerID as read. A no-op when nothing is unread.
	MarkMessagesRead(ctx context.Context, conversationID, readerID string) error
	// CountUnreadMessages counts unread messages across the given
	// conversations that were not sent by userID.
	CountUnreadMessages(ctx context.Context, conversationIDs []string, userID string) (int, error)
}

// NotificationRepository manages per-user notification feeds.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *model.Notification) error
	// GetNotificationByID returns the notification annotated with the
	// related user's summary. Used by the push-channel handler's re-fetch.
	GetNotificationByID(ctx context.Context, id string) (*model.Notification, error)
	// ListNotificationsForUser returns the newest notifications first,
	// annotated with related-user summaries, capped at limit.
	ListNotificationsForUser(ctx context.Context, userID string, limit int) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) error
	CountUnreadNotifications(ctx context.Context, userID string) (int, error)
}

// FollowRepository manages follow edges.
type FollowRepository interface {
	CreateFollow(ctx context.Context, followerID, followingID string) error
	DeleteFollow(ctx context.Context, followerID, followingID string) error
	FollowExists(ctx context.Context, followerID, followingID string) (bool, error)
	// FollowingAmong returns the subset of candidateIDs that followerID
	// currently follows.
	FollowingAmong(ctx context.Context, followerID string, candidateIDs []string) ([]string, error)
}

// PostRepository covers the post writes discovery needs for its read paths
// (and tests need for seeding). Full post CRUD belongs to the post module.
type PostRepository interface {
	CreatePost(ctx context.Context, post *model.Post) error
	LikePost(ctx context.Context, postID, userID string) error
}

// DiscoveryRepository backs the search/discovery read-shaping queries and the
// two refresh procedures the backing platform exposes as remote procedures.
type DiscoveryRepository interface {
	// SearchUsers matches username or display name, ordered by follower
	// count descending. viewerID may be empty for anonymous searches.
	SearchUsers(ctx context.Context, term, viewerID string, limit int) ([]model.SearchResult, error)
	// TrendingPosts returns posts by trending score descending.
	TrendingPosts(ctx context.Context, viewerID string, limit int) ([]model.Post, error)
	// TrendingUsers returns high-follower users excluding the viewer and
	// anyone the viewer already follows.
	TrendingUsers(ctx context.Context, viewerID string, limit int) ([]model.SearchResult, error)
	// ExplorePosts returns posts by like count, then recency.
	ExplorePosts(ctx context.Context, viewerID string, limit int) ([]model.Post, error)
	// RefreshRecommendations regenerates mutual-follow recommendations for
	// the user in one transaction.
	RefreshRecommendations(ctx context.Context, userID string) error
	// Recommendations returns the stored recommendations by score descending.
	Recommendations(ctx context.Context, userID string, limit int) ([]model.Recommendation, error)
	// RefreshTrendingPosts recomputes the trending score table.
	RefreshTrendingPosts(ctx context.Context) error
}
