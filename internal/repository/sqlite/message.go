package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/likey-social/likey/internal/apperror"
	"github.com/likey-social/likey/internal/model"
	"github.com/likey-social/likey/internal/repository"
)

// compile-time check that *DB implements repository.MessageRepository
var _ repository.MessageRepository = (*DB)(nil)

const messageSelect = `
	SELECT m.id, m.conversation_id, m.sender_id, m.content, m.read,
	       m.created_at, m.edited_at, m.forwarded_from,
	       u.id, u.username, u.display_name, u.avatar_url
	FROM messages m
	JOIN users u ON u.id = m.sender_id`

func scanMessage(scan func(dest ...any) error) (*model.Message, error) {
	var (
		m      model.Message
		sender model.UserSummary
		edited sql.NullTime
	)
	err := scan(
		&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.Read,
		&m.CreatedAt, &edited, &m.ForwardedFrom,
		&sender.ID, &sender.Username, &sender.DisplayName, &sender.AvatarURL,
	)
	if err != nil {
		return nil, err
	}
	if edited.Valid {
		t := edited.Time
		m.EditedAt = &t
	}
	m.Sender = &sender
	return &m, nil
}

// CreateMessage inserts a message, filling ID and CreatedAt.
// The read flag starts false; the recipient flips it via MarkRead.
func (db *DB) CreateMessage(ctx context.Context, msg *model.Message) error {
	msg.ID = xid.New().String()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, sender_id, content, read, created_at, forwarded_from)
		 VALUES (?, ?, ?, ?, 0, ?, ?)`,
		msg.ID, msg.ConversationID, msg.SenderID, msg.Content, msg.CreatedAt, msg.ForwardedFrom,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting message: %w", err)
	}
	return nil
}

// GetMessageByID returns the message annotated with its sender summary.
func (db *DB) GetMessageByID(ctx context.Context, id string) (*model.Message, error) {
	row := db.conn.QueryRowContext(ctx, messageSelect+` WHERE m.id = ?`, id)
	m, err := scanMessage(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("message", id)
		}
		return nil, fmt.Errorf("sqlite: getting message %s: %w", id, err)
	}
	return m, nil
}

// ListConversationMessages returns messages oldest-first with sender summaries.
func (db *DB) ListConversationMessages(ctx context.Context, conversationID string, opts repository.ListOptions) ([]model.Message, error) {
	rows, err := db.conn.QueryContext(ctx,
		messageSelect+`
		 WHERE m.conversation_id = ?
		 ORDER BY m.created_at ASC, m.id ASC
		 LIMIT ? OFFSET ?`,
		conversationID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing messages for %s: %w", conversationID, err)
	}
	defer rows.Close()

	messages := []model.Message{}
	for rows.Next() {
		m, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning message row: %w", err)
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

// UpdateMessageContent sets new content and the edited timestamp.
func (db *DB) UpdateMessageContent(ctx context.Context, id, content string, editedAt time.Time) (*model.Message, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE messages SET content = ?, edited_at = ? WHERE id = ?`,
		content, editedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating message %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperror.NotFound("message", id)
	}
	return db.GetMessageByID(ctx, id)
}

// DeleteMessage removes a message row.
func (db *DB) DeleteMessage(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting message %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("message", id)
	}
	return nil
}

// MarkMessagesRead flags every unread message in the conversation not sent by
// readerID. Running it again once everything is read matches zero rows, which
// is what makes the operation idempotent.
func (db *DB) MarkMessagesRead(ctx context.Context, conversationID, readerID string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE messages SET read = 1
		 WHERE conversation_id = ? AND sender_id <> ? AND read = 0`,
		conversationID, readerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: marking messages read in %s: %w", conversationID, err)
	}
	return nil
}

// CountUnreadMessages counts unread messages across the given conversations that were
// not sent by userID. COALESCE keeps the result an integer even if the
// aggregate ever produces NULL.
func (db *DB) CountUnreadMessages(ctx context.Context, conversationIDs []string, userID string) (int, error) {
	if len(conversationIDs) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(conversationIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(conversationIDs)+1)
	args = append(args, userID)
	for _, id := range conversationIDs {
		args = append(args, id)
	}

	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(COUNT(*), 0) FROM messages
		 WHERE sender_id <> ? AND read = 0 AND conversation_id IN (`+placeholders+`)`,
		args...,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting unread messages: %w", err)
	}
	return count, nil
}
