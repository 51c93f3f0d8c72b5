package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/likey-social/likey/internal/apperror"
	"github.com/likey-social/likey/internal/model"
	"github.com/likey-social/likey/internal/realtime"
	"github.com/likey-social/likey/internal/repository"
	"github.com/likey-social/likey/internal/validate"
)

// MutationWindow is how long after sending a message its sender may still
// edit or delete it. The boundary is inclusive: a mutation at exactly five
// minutes is allowed.
const MutationWindow = 5 * time.Minute

// DefaultMessagePageSize caps a conversation page when the caller doesn't ask
// for a specific limit.
const DefaultMessagePageSize = 50

// MessageService handles conversations and messages: creation and dedup of
// the 1:1 channel, the send/edit/delete/forward operations, read tracking,
// and the live push channel for new messages.
type MessageService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	users         repository.UserRepository
	hub           *realtime.Hub
	logger        *slog.Logger

	// now is swapped in tests to pin the mutation-window clock.
	now func() time.Time
}

// NewMessageService creates a MessageService with all required dependencies.
func NewMessageService(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	users repository.UserRepository,
	hub *realtime.Hub,
	logger *slog.Logger,
) *MessageService {
	return &MessageService{
		conversations: conversations,
		messages:      messages,
		users:         users,
		hub:           hub,
		logger:        logger,
		now:           time.Now,
	}
}

// GetOrCreateConversation returns the conversation between the caller and
// otherUserID, creating it if none exists yet. Both paths return it annotated
// with OtherUser resolved to the participant that is not the caller.
//
// The pair is unordered: (A,B) and (B,A) resolve to the same conversation no
// matter who asked first.
func (s *MessageService) GetOrCreateConversation(ctx context.Context, userID, otherUserID string) (*model.Conversation, error) {
	if userID == "" {
		return nil, apperror.NotAuthenticated()
	}
	if userID == otherUserID {
		return nil, apperror.ValidationFailed("user_id", "Cannot start a conversation with yourself")
	}

	other, err := s.users.GetUserByID(ctx, otherUserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("user", otherUserID)
		}
		return nil, fmt.Errorf("service/message: checking other participant: %w", err)
	}

	conv, err := s.conversations.FindConversationByParticipants(ctx, userID, otherUserID)
	if err == nil {
		conv.OtherUser = other.Summary()
		return conv, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/message: finding conversation: %w", err)
	}

	conv = &model.Conversation{User1ID: userID, User2ID: otherUserID}
	if err := s.conversations.CreateConversation(ctx, conv); err != nil {
		// A concurrent first-contact request can win between the lookup and
		// the insert; the unique pair index rejects the loser, so pick up
		// the winner's row instead of failing.
		existing, findErr := s.conversations.FindConversationByParticipants(ctx, userID, otherUserID)
		if findErr == nil {
			existing.OtherUser = other.Summary()
			return existing, nil
		}
		return nil, fmt.Errorf("service/message: creating conversation: %w", err)
	}

	s.logger.Info("conversation created",
		slog.String("conversationID", conv.ID),
		slog.String("user1", userID),
		slog.String("user2", otherUserID),
	)
	conv.OtherUser = other.Summary()
	return conv, nil
}

// UserConversations returns every conversation the caller participates in,
// most recently active first, annotated with the other participant and the
// latest message.
func (s *MessageService) UserConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	if userID == "" {
		return nil, apperror.NotAuthenticated()
	}
	convs, err := s.conversations.ListConversationsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/message: listing conversations for %s: %w", userID, err)
	}
	return convs, nil
}

// ConversationMessages returns a page of messages oldest-first. Only
// participants may read a conversation.
func (s *MessageService) ConversationMessages(ctx context.Context, userID, conversationID string, opts repository.ListOptions) ([]model.Message, error) {
	if userID == "" {
		return nil, apperror.NotAuthenticated()
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultMessagePageSize
	}

	if _, err := s.participantConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	msgs, err := s.messages.ListConversationMessages(ctx, conversationID, opts)
	if err != nil {
		return nil, fmt.Errorf("service/message: listing messages in %s: %w", conversationID, err)
	}
	return msgs, nil
}

// SendMessage validates and stores a new message, bumps the conversation's
// last-activity timestamp, and publishes the insert on the push channel.
// Returns the stored message annotated with the sender's summary.
func (s *MessageService) SendMessage(ctx context.Context, userID, conversationID, content string) (*model.Message, error) {
	if userID == "" {
		return nil, apperror.NotAuthenticated()
	}
	trimmed, err := validate.MessageContent(content)
	if err != nil {
		return nil, err
	}

	if _, err := s.participantConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	msg := &model.Message{
		ConversationID: conversationID,
		SenderID:       userID,
		Content:        trimmed,
	}
	if err := s.messages.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("service/message: creating message: %w", err)
	}

	if err := s.conversations.TouchLastMessage(ctx, conversationID, msg.CreatedAt); err != nil {
		// The message is stored; a stale ordering timestamp is not worth
		// failing the send over.
		s.logger.Warn("failed to bump conversation activity",
			slog.String("conversationID", conversationID),
			slog.String("error", err.Error()),
		)
	}

	s.hub.Publish(realtime.TableMessages, conversationID, msg.ID)

	stored, err := s.messages.GetMessageByID(ctx, msg.ID)
	if err != nil {
		return nil, fmt.Errorf("service/message: reloading message %s: %w", msg.ID, err)
	}
	return stored, nil
}

// CanModifyMessage reports whether a message created at createdAt may still
// be edited or deleted at now. The five-minute boundary is inclusive.
func CanModifyMessage(createdAt, now time.Time) bool {
	return now.Sub(createdAt) <= MutationWindow
}

// EditMessage replaces a message's content. Only the sender may edit, and
// only within the mutation window.
func (s *MessageService) EditMessage(ctx context.Context, userID, messageID, content string) (*model.Message, error) {
	if userID == "" {
		return nil, apperror.NotAuthenticated()
	}
	trimmed, err := validate.MessageContent(content)
	if err != nil {
		return nil, err
	}

	msg, err := s.messages.GetMessageByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("message", messageID)
		}
		return nil, fmt.Errorf("service/message: fetching message %s: %w", messageID, err)
	}

	if msg.SenderID != userID {
		return nil, apperror.Forbidden("You can only edit your own messages")
	}
	if !CanModifyMessage(msg.CreatedAt, s.now()) {
		return nil, apperror.WindowExpired("edit")
	}
	if _, err := s.participantConversation(ctx, userID, msg.ConversationID); err != nil {
		return nil, err
	}

	updated, err := s.messages.UpdateMessageContent(ctx, messageID, trimmed, s.now())
	if err != nil {
		return nil, fmt.Errorf("service/message: updating message %s: %w", messageID, err)
	}
	return updated, nil
}

// DeleteMessage removes a message. Only the sender may delete, and only
// within the mutation window.
func (s *MessageService) DeleteMessage(ctx context.Context, userID, messageID string) error {
	if userID == "" {
		return apperror.NotAuthenticated()
	}

	msg, err := s.messages.GetMessageByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFound("message", messageID)
		}
		return fmt.Errorf("service/message: fetching message %s: %w", messageID, err)
	}

	if msg.SenderID != userID {
		return apperror.Forbidden("You can only delete your own messages")
	}
	if !CanModifyMessage(msg.CreatedAt, s.now()) {
		return apperror.WindowExpired("delete")
	}
	if _, err := s.participantConversation(ctx, userID, msg.ConversationID); err != nil {
		return err
	}

	if err := s.messages.DeleteMessage(ctx, messageID); err != nil {
		return fmt.Errorf("service/message: deleting message %s: %w", messageID, err)
	}
	return nil
}

// ForwardMessage copies an existing message into another conversation the
// caller participates in. Both conversations are access-checked before any
// write happens; the new message records the source via ForwardedFrom.
//
// There is no mutation window here: forwarding is a new send, not an edit.
func (s *MessageService) ForwardMessage(ctx context.Context, userID, messageID, targetConversationID string) (*model.Message, error) {
	if userID == "" {
		return nil, apperror.NotAuthenticated()
	}

	src, err := s.messages.GetMessageByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("message", messageID)
		}
		return nil, fmt.Errorf("service/message: fetching source message %s: %w", messageID, err)
	}

	srcConv, err := s.conversations.GetConversationByID(ctx, src.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("service/message: fetching source conversation: %w", err)
	}
	if !srcConv.HasParticipant(userID) {
		return nil, apperror.AccessDenied("Access denied to source conversation")
	}

	targetConv, err := s.conversations.GetConversationByID(ctx, targetConversationID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("conversation", targetConversationID)
		}
		return nil, fmt.Errorf("service/message: fetching target conversation: %w", err)
	}
	if !targetConv.HasParticipant(userID) {
		return nil, apperror.AccessDenied("Access denied to target conversation")
	}

	msg := &model.Message{
		ConversationID: targetConversationID,
		SenderID:       userID,
		Content:        src.Content,
		ForwardedFrom:  src.ID,
	}
	if err := s.messages.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("service/message: forwarding message: %w", err)
	}

	if err := s.conversations.TouchLastMessage(ctx, targetConversationID, msg.CreatedAt); err != nil {
		s.logger.Warn("failed to bump conversation activity",
			slog.String("conversationID", targetConversationID),
			slog.String("error", err.Error()),
		)
	}

	s.hub.Publish(realtime.TableMessages, targetConversationID, msg.ID)

	stored, err := s.messages.GetMessageByID(ctx, msg.ID)
	if err != nil {
		return nil, fmt.Errorf("service/message: reloading message %s: %w", msg.ID, err)
	}
	return stored, nil
}

// MarkMessagesAsRead flags every unread message the other participant sent in
// the conversation. Safe to call repeatedly.
func (s *MessageService) MarkMessagesAsRead(ctx context.Context, userID, conversationID string) error {
	if userID == "" {
		return apperror.NotAuthenticated()
	}
	if _, err := s.participantConversation(ctx, userID, conversationID); err != nil {
		return err
	}
	if err := s.messages.MarkMessagesRead(ctx, conversationID, userID); err != nil {
		return fmt.Errorf("service/message: marking messages read in %s: %w", conversationID, err)
	}
	return nil
}

// UnreadMessageCount returns the total unread messages addressed to the
// caller across all their conversations. A user with no conversations has
// zero unread.
func (s *MessageService) UnreadMessageCount(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, apperror.NotAuthenticated()
	}
	ids, err := s.conversations.ConversationIDsForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("service/message: listing conversation ids for %s: %w", userID, err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	count, err := s.messages.CountUnreadMessages(ctx, ids, userID)
	if err != nil {
		return 0, fmt.Errorf("service/message: counting unread for %s: %w", userID, err)
	}
	return count, nil
}

// SubscribeToMessages opens a push channel for new messages in one
// conversation. Only participants may subscribe. The handler receives the
// full annotated message: the push event carries just the row ID and the
// record is re-fetched so subscribers see the same shape as a page load.
//
// The caller owns the returned subscription and must Close it.
func (s *MessageService) SubscribeToMessages(ctx context.Context, userID, conversationID string, handler func(*model.Message)) (*realtime.Subscription, error) {
	if userID == "" {
		return nil, apperror.NotAuthenticated()
	}
	if _, err := s.participantConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	sub := s.hub.Subscribe(realtime.TableMessages, conversationID, func(ev realtime.Event) {
		msg, err := s.messages.GetMessageByID(context.Background(), ev.RowID)
		if err != nil {
			// Deleted before delivery, or a bad row id: drop the event.
			s.logger.Warn("dropping message push event",
				slog.String("messageID", ev.RowID),
				slog.String("error", err.Error()),
			)
			return
		}
		handler(msg)
	})
	return sub, nil
}

// participantConversation loads a conversation and verifies the caller is one
// of its two participants.
func (s *MessageService) participantConversation(ctx context.Context, userID, conversationID string) (*model.Conversation, error) {
	conv, err := s.conversations.GetConversationByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("conversation", conversationID)
		}
		return nil, fmt.Errorf("service/message: fetching conversation %s: %w", conversationID, err)
	}
	if !conv.HasParticipant(userID) {
		return nil, apperror.AccessDenied("Access denied to this conversation")
	}
	return conv, nil
}
