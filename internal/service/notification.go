package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/likey-social/likey/internal/apperror"
	"github.com/likey-social/likey/internal/model"
	"github.com/likey-social/likey/internal/realtime"
	"github.com/likey-social/likey/internal/repository"
)

// DefaultNotificationPageSize caps the notification feed load.
const DefaultNotificationPageSize = 50

// NotificationService manages per-user notification feeds: creation (with the
// self-notify guard), the feed load, read tracking, and the live push channel.
type NotificationService struct {
	notifications repository.NotificationRepository
	hub           *realtime.Hub
	logger        *slog.Logger

	// One live push subscription per user. Subscribing again replaces the
	// previous channel so a user never receives duplicates.
	mu     sync.Mutex
	active map[string]*realtime.Subscription
}

// NewNotificationService creates a NotificationService.
func NewNotificationService(
	notifications repository.NotificationRepository,
	hub *realtime.Hub,
	logger *slog.Logger,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		hub:           hub,
		logger:        logger,
		active:        make(map[string]*realtime.Subscription),
	}
}

// Feed bundles a notification page with the unread count, matching what the
// notification dropdown renders in one load.
type Feed struct {
	Notifications []model.Notification `json:"notifications"`
	UnreadCount   int                  `json:"unread_count"`
}

// Load returns the caller's newest notifications (capped at the default page
// size) together with the unread count.
func (s *NotificationService) Load(ctx context.Context, userID string) (*Feed, error) {
	if userID == "" {
		return nil, apperror.NotAuthenticated()
	}

	items, err := s.notifications.ListNotificationsForUser(ctx, userID, DefaultNotificationPageSize)
	if err != nil {
		return nil, fmt.Errorf("service/notification: listing for %s: %w", userID, err)
	}
	unread, err := s.notifications.CountUnreadNotifications(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/notification: counting unread for %s: %w", userID, err)
	}

	return &Feed{Notifications: items, UnreadCount: unread}, nil
}

// Create stores a notification and publishes it on the push channel.
//
// Self-notifications are silently skipped: a user acting on their own content
// produces no feed entry and no error, so callers never need the guard.
func (s *NotificationService) Create(ctx context.Context, n *model.Notification) error {
	if n.UserID != "" && n.UserID == n.RelatedUserID {
		return nil
	}

	if err := s.notifications.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("service/notification: creating: %w", err)
	}

	s.hub.Publish(realtime.TableNotifications, n.UserID, n.ID)
	return nil
}

// Subscribe opens a push channel for the user's new notifications. The
// handler receives the full annotated notification; like messages, the event
// carries just the row ID and the record is re-fetched on delivery.
//
// A second Subscribe for the same user closes and replaces the first channel.
func (s *NotificationService) Subscribe(userID string, handler func(*model.Notification)) (*realtime.Subscription, error) {
	if userID == "" {
		return nil, apperror.NotAuthenticated()
	}

	sub := s.hub.Subscribe(realtime.TableNotifications, userID, func(ev realtime.Event) {
		n, err := s.notifications.GetNotificationByID(context.Background(), ev.RowID)
		if err != nil {
			s.logger.Warn("dropping notification push event",
				slog.String("notificationID", ev.RowID),
				slog.String("error", err.Error()),
			)
			return
		}
		handler(n)
	})

	s.mu.Lock()
	if prev, ok := s.active[userID]; ok {
		prev.Close()
	}
	s.active[userID] = sub
	s.mu.Unlock()

	return sub, nil
}

// Unsubscribe closes the user's live channel, if any.
func (s *NotificationService) Unsubscribe(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.active[userID]; ok {
		sub.Close()
		delete(s.active, userID)
	}
}

// Release closes sub and clears the user's active entry when it still points
// at sub. A newer subscription that has already replaced sub is left alone,
// so a stale stream tearing down late cannot kill its successor.
func (s *NotificationService) Release(userID string, sub *realtime.Subscription) {
	if sub == nil {
		return
	}
	sub.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[userID] == sub {
		delete(s.active, userID)
	}
}

// MarkRead flags one notification as read. Callers may only touch their own
// feed.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	if userID == "" {
		return apperror.NotAuthenticated()
	}

	n, err := s.notifications.GetNotificationByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFound("notification", notificationID)
		}
		return fmt.Errorf("service/notification: fetching %s: %w", notificationID, err)
	}
	if n.UserID != userID {
		return apperror.AccessDenied("Access denied to this notification")
	}

	if err := s.notifications.MarkNotificationRead(ctx, notificationID); err != nil {
		return fmt.Errorf("service/notification: marking %s read: %w", notificationID, err)
	}
	return nil
}

// MarkAllRead flags every unread notification in the caller's feed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	if userID == "" {
		return apperror.NotAuthenticated()
	}
	if err := s.notifications.MarkAllNotificationsRead(ctx, userID); err != nil {
		return fmt.Errorf("service/notification: marking all read for %s: %w", userID, err)
	}
	return nil
}

// UnreadCount returns the caller's unread notification count.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, apperror.NotAuthenticated()
	}
	count, err := s.notifications.CountUnreadNotifications(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("service/notification: counting unread for %s: %w", userID, err)
	}
	return count, nil
}
