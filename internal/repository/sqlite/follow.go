package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/likey-social/likey/internal/repository"
)

// compile-time check that *DB implements repository.FollowRepository
var _ repository.FollowRepository = (*DB)(nil)

// CreateFollow inserts a follow edge. The primary key on the pair makes a
// duplicate follow a constraint error rather than a second row.
func (db *DB) CreateFollow(ctx context.Context, followerID, followingID string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO follows (follower_id, following_id, created_at) VALUES (?, ?, ?)`,
		followerID, followingID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting follow %s -> %s: %w", followerID, followingID, err)
	}
	return nil
}

// DeleteFollow removes a follow edge. Deleting a non-existent edge is not an
// error — unfollow is idempotent.
func (db *DB) DeleteFollow(ctx context.Context, followerID, followingID string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = ? AND following_id = ?`,
		followerID, followingID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting follow %s -> %s: %w", followerID, followingID, err)
	}
	return nil
}

// FollowExists reports whether followerID follows followingID.
func (db *DB) FollowExists(ctx context.Context, followerID, followingID string) (bool, error) {
	var one int
	err := db.conn.QueryRowContext(ctx,
		`SELECT 1 FROM follows WHERE follower_id = ? AND following_id = ?`,
		followerID, followingID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: checking follow %s -> %s: %w", followerID, followingID, err)
	}
	return true, nil
}

// FollowingAmong returns the subset of candidateIDs that followerID follows.
func (db *DB) FollowingAmong(ctx context.Context, followerID string, candidateIDs []string) ([]string, error) {
	if len(candidateIDs) == 0 {
		return []string{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(candidateIDs)), ",")
	args := make([]any, 0, len(candidateIDs)+1)
	args = append(args, followerID)
	for _, id := range candidateIDs {
		args = append(args, id)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT following_id FROM follows
		 WHERE follower_id = ? AND following_id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: batch checking follows for %s: %w", followerID, err)
	}
	defer rows.Close()

	following := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning follow row: %w", err)
		}
		following = append(following, id)
	}
	return following, rows.Err()
}
