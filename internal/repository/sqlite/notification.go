package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/likey-social/likey/internal/apperror"
	"github.com/likey-social/likey/internal/model"
	"github.com/likey-social/likey/internal/repository"
)

// compile-time check that *DB implements repository.NotificationRepository
var _ repository.NotificationRepository = (*DB)(nil)

// CreateNotification inserts a notification, filling ID and CreatedAt.
func (db *DB) CreateNotification(ctx context.Context, n *model.Notification) error {
	n.ID = xid.New().String()
	n.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, type, message, related_user_id, related_post_id, read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		n.ID, n.UserID, n.Type, n.Message, n.RelatedUserID, n.RelatedPostID, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting notification: %w", err)
	}
	return nil
}

// GetNotificationByID returns a notification annotated with the related
// user's summary. Used by the realtime handler's re-fetch.
func (db *DB) GetNotificationByID(ctx context.Context, id string) (*model.Notification, error) {
	var n model.Notification
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, type, message, related_user_id, related_post_id, read, created_at
		 FROM notifications WHERE id = ?`, id,
	).Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &n.RelatedUserID, &n.RelatedPostID, &n.Read, &n.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("notification", id)
		}
		return nil, fmt.Errorf("sqlite: getting notification %s: %w", id, err)
	}

	related, err := db.summaryByID(ctx, n.RelatedUserID)
	if err != nil {
		return nil, err
	}
	n.RelatedUser = related
	return &n, nil
}

// ListNotificationsForUser returns the newest notifications first, capped at
// limit, each annotated with the related user's summary.
func (db *DB) ListNotificationsForUser(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT n.id, n.user_id, n.type, n.message, n.related_user_id, n.related_post_id,
		        n.read, n.created_at,
		        u.id, u.username, u.display_name, u.avatar_url
		 FROM notifications n
		 LEFT JOIN users u ON u.id = n.related_user_id
		 WHERE n.user_id = ?
		 ORDER BY n.created_at DESC, n.id DESC
		 LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing notifications for %s: %w", userID, err)
	}
	defer rows.Close()

	notifications := []model.Notification{}
	for rows.Next() {
		var (
			n model.Notification

			relID, relUsername, relDisplay, relAvatar sql.NullString
		)
		err := rows.Scan(
			&n.ID, &n.UserID, &n.Type, &n.Message, &n.RelatedUserID, &n.RelatedPostID,
			&n.Read, &n.CreatedAt,
			&relID, &relUsername, &relDisplay, &relAvatar,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning notification row: %w", err)
		}
		if relID.Valid {
			n.RelatedUser = &model.UserSummary{
				ID:          relID.String,
				Username:    relUsername.String,
				DisplayName: relDisplay.String,
				AvatarURL:   relAvatar.String,
			}
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead flags a single notification as read.
func (db *DB) MarkNotificationRead(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: marking notification %s read: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("notification", id)
	}
	return nil
}

// MarkAllNotificationsRead flags every unread notification for the user.
func (db *DB) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE user_id = ? AND read = 0`, userID)
	if err != nil {
		return fmt.Errorf("sqlite: marking all notifications read for %s: %w", userID, err)
	}
	return nil
}

// CountUnreadNotifications counts the user's unread notifications.
func (db *DB) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(COUNT(*), 0) FROM notifications WHERE user_id = ? AND read = 0`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting unread notifications: %w", err)
	}
	return count, nil
}
