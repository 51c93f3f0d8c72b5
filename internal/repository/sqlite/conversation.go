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

// compile-time check that *DB implements repository.ConversationRepository
var _ repository.ConversationRepository = (*DB)(nil)

// FindConversationByParticipants looks up the conversation for the unordered pair {a, b}.
// Checking both storage orders is what makes the pair unordered — the caller
// never needs to know who created the conversation.
func (db *DB) FindConversationByParticipants(ctx context.Context, a, b string) (*model.Conversation, error) {
	var c model.Conversation
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user1_id, user2_id, last_message_at, created_at
		 FROM conversations
		 WHERE (user1_id = ? AND user2_id = ?) OR (user1_id = ? AND user2_id = ?)`,
		a, b, b, a,
	).Scan(&c.ID, &c.User1ID, &c.User2ID, &c.LastMessageAt, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("conversation", a+"/"+b)
		}
		return nil, fmt.Errorf("sqlite: finding conversation: %w", err)
	}
	return &c, nil
}

// CreateConversation inserts a conversation, filling ID and timestamps.
func (db *DB) CreateConversation(ctx context.Context, conv *model.Conversation) error {
	now := time.Now().UTC()
	conv.ID = xid.New().String()
	conv.LastMessageAt = now
	conv.CreatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO conversations (id, user1_id, user2_id, last_message_at, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		conv.ID, conv.User1ID, conv.User2ID, conv.LastMessageAt, conv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting conversation: %w", err)
	}
	return nil
}

// GetConversationByID retrieves a conversation by ID.
func (db *DB) GetConversationByID(ctx context.Context, id string) (*model.Conversation, error) {
	var c model.Conversation
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user1_id, user2_id, last_message_at, created_at
		 FROM conversations WHERE id = ?`, id,
	).Scan(&c.ID, &c.User1ID, &c.User2ID, &c.LastMessageAt, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("conversation", id)
		}
		return nil, fmt.Errorf("sqlite: getting conversation %s: %w", id, err)
	}
	return &c, nil
}

// ListConversationsForUser returns every conversation the user participates in, ordered by
// last activity descending. Each row is annotated with the other
// participant's summary (one JOIN picks whichever side isn't the caller) and
// the most recent message via a correlated subquery.
func (db *DB) ListConversationsForUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT c.id, c.user1_id, c.user2_id, c.last_message_at, c.created_at,
		        u.id, u.username, u.display_name, u.avatar_url,
		        m.id, m.sender_id, m.content, m.read, m.created_at
		 FROM conversations c
		 JOIN users u ON u.id = CASE WHEN c.user1_id = ? THEN c.user2_id ELSE c.user1_id END
		 LEFT JOIN messages m ON m.id = (
		 	SELECT id FROM messages
		 	WHERE conversation_id = c.id
		 	ORDER BY created_at DESC, id DESC LIMIT 1
		 )
		 WHERE c.user1_id = ? OR c.user2_id = ?
		 ORDER BY c.last_message_at DESC`,
		userID, userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing conversations for %s: %w", userID, err)
	}
	defer rows.Close()

	conversations := []model.Conversation{}
	for rows.Next() {
		var (
			c     model.Conversation
			other model.UserSummary

			msgID, msgSender, msgContent sql.NullString
			msgRead                      sql.NullBool
			msgCreated                   sql.NullTime
		)
		err := rows.Scan(
			&c.ID, &c.User1ID, &c.User2ID, &c.LastMessageAt, &c.CreatedAt,
			&other.ID, &other.Username, &other.DisplayName, &other.AvatarURL,
			&msgID, &msgSender, &msgContent, &msgRead, &msgCreated,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning conversation row: %w", err)
		}

		c.OtherUser = &other
		if msgID.Valid {
			c.LastMessage = &model.Message{
				ID:             msgID.String,
				ConversationID: c.ID,
				SenderID:       msgSender.String,
				Content:        msgContent.String,
				Read:           msgRead.Bool,
				CreatedAt:      msgCreated.Time,
			}
		}
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating conversations: %w", err)
	}
	return conversations, nil
}

// ConversationIDsForUser returns the IDs of every conversation the user participates in.
func (db *DB) ConversationIDsForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id FROM conversations WHERE user1_id = ? OR user2_id = ?`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing conversation ids for %s: %w", userID, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning conversation id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// TouchLastMessage bumps the conversation's last-activity timestamp.
func (db *DB) TouchLastMessage(ctx context.Context, id string, at time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE conversations SET last_message_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("sqlite: touching conversation %s: %w", id, err)
	}
	return nil
}
