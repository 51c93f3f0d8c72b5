package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/likey-social/likey/internal/model"
	"github.com/likey-social/likey/internal/repository"
)

// compile-time checks
var (
	_ repository.PostRepository      = (*DB)(nil)
	_ repository.DiscoveryRepository = (*DB)(nil)
)

// CreatePost inserts a post, filling ID and CreatedAt.
func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO posts (id, user_id, content, image_url, like_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		post.ID, post.UserID, post.Content, post.ImageURL, post.LikeCount, post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting post: %w", err)
	}
	return nil
}

// LikePost records a like and bumps the post's denormalised like count.
func (db *DB) LikePost(ctx context.Context, postID, userID string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning like tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO likes (post_id, user_id, created_at) VALUES (?, ?, ?)`,
		postID, userID, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("sqlite: inserting like: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE posts SET like_count = like_count + 1 WHERE id = ?`, postID,
	); err != nil {
		return fmt.Errorf("sqlite: bumping like count: %w", err)
	}
	return tx.Commit()
}

const searchResultColumns = `
	u.id, u.username, u.display_name, u.bio, u.avatar_url,
	(SELECT COUNT(*) FROM follows f WHERE f.following_id = u.id) AS followers_count`

// SearchUsers matches the term against username and display name
// (case-insensitive substring), ordered by follower count descending. When
// viewerID is non-empty each result carries whether the viewer follows it.
func (db *DB) SearchUsers(ctx context.Context, term, viewerID string, limit int) ([]model.SearchResult, error) {
	pattern := "%" + term + "%"
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+searchResultColumns+`,
		        EXISTS(SELECT 1 FROM follows f WHERE f.follower_id = ? AND f.following_id = u.id)
		 FROM users u
		 WHERE u.username LIKE ? COLLATE NOCASE OR u.display_name LIKE ? COLLATE NOCASE
		 ORDER BY followers_count DESC, u.username ASC
		 LIMIT ?`,
		viewerID, pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching users: %w", err)
	}
	defer rows.Close()
	return scanSearchResults(rows)
}

// TrendingUsers returns the highest-follower profiles, excluding the viewer
// and anyone the viewer already follows.
func (db *DB) TrendingUsers(ctx context.Context, viewerID string, limit int) ([]model.SearchResult, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+searchResultColumns+`, 0
		 FROM users u
		 WHERE u.id <> ?
		   AND NOT EXISTS(SELECT 1 FROM follows f WHERE f.follower_id = ? AND f.following_id = u.id)
		 ORDER BY followers_count DESC, u.username ASC
		 LIMIT ?`,
		viewerID, viewerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing trending users: %w", err)
	}
	defer rows.Close()
	return scanSearchResults(rows)
}

func scanSearchResults(rows *sql.Rows) ([]model.SearchResult, error) {
	results := []model.SearchResult{}
	for rows.Next() {
		var r model.SearchResult
		err := rows.Scan(&r.ID, &r.Username, &r.DisplayName, &r.Bio, &r.AvatarURL,
			&r.FollowersCount, &r.IsFollowing)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning search result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

const postColumns = `
	p.id, p.user_id, p.content, p.image_url, p.like_count, p.created_at,
	u.id, u.username, u.display_name, u.avatar_url,
	EXISTS(SELECT 1 FROM likes l WHERE l.post_id = p.id AND l.user_id = ?)`

func scanPosts(rows *sql.Rows) ([]model.Post, error) {
	posts := []model.Post{}
	for rows.Next() {
		var (
			p      model.Post
			author model.UserSummary
		)
		err := rows.Scan(&p.ID, &p.UserID, &p.Content, &p.ImageURL, &p.LikeCount, &p.CreatedAt,
			&author.ID, &author.Username, &author.DisplayName, &author.AvatarURL,
			&p.LikedByUser)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		p.User = &author
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// TrendingPosts returns posts joined through the trending score table,
// highest score first.
func (db *DB) TrendingPosts(ctx context.Context, viewerID string, limit int) ([]model.Post, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+postColumns+`
		 FROM trending_posts t
		 JOIN posts p ON p.id = t.post_id
		 JOIN users u ON u.id = p.user_id
		 ORDER BY t.score DESC
		 LIMIT ?`,
		viewerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing trending posts: %w", err)
	}
	defer rows.Close()
	return scanPosts(rows)
}

// ExplorePosts returns posts by like count, then recency.
func (db *DB) ExplorePosts(ctx context.Context, viewerID string, limit int) ([]model.Post, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+postColumns+`
		 FROM posts p
		 JOIN users u ON u.id = p.user_id
		 ORDER BY p.like_count DESC, p.created_at DESC
		 LIMIT ?`,
		viewerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing explore posts: %w", err)
	}
	defer rows.Close()
	return scanPosts(rows)
}

// RefreshRecommendations regenerates mutual-follow recommendations for the
// user: people followed by the accounts the user follows, excluding the user
// and anyone they already follow. The score is the number of mutual paths.
// The whole rebuild runs in one transaction, standing in for the
// generate_mutual_follow_recommendations procedure the backing platform used
// to own.
func (db *DB) RefreshRecommendations(ctx context.Context, userID string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning recommendation refresh: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_recommendations WHERE user_id = ?`, userID,
	); err != nil {
		return fmt.Errorf("sqlite: clearing recommendations: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_recommendations (user_id, recommended_user_id, reason, score, created_at)
		 SELECT ?, f2.following_id, 'followed by people you follow', COUNT(*), ?
		 FROM follows f1
		 JOIN follows f2 ON f2.follower_id = f1.following_id
		 WHERE f1.follower_id = ?
		   AND f2.following_id <> ?
		   AND NOT EXISTS (
		   	SELECT 1 FROM follows f3
		   	WHERE f3.follower_id = ? AND f3.following_id = f2.following_id
		   )
		 GROUP BY f2.following_id`,
		userID, time.Now().UTC(), userID, userID, userID,
	); err != nil {
		return fmt.Errorf("sqlite: generating recommendations: %w", err)
	}

	return tx.Commit()
}

// Recommendations returns the stored recommendations by score descending,
// each resolved to the recommended user's profile.
func (db *DB) Recommendations(ctx context.Context, userID string, limit int) ([]model.Recommendation, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT u.id, u.username, u.display_name, u.bio, u.avatar_url,
		        (SELECT COUNT(*) FROM follows f WHERE f.following_id = u.id),
		        r.reason, r.score
		 FROM user_recommendations r
		 JOIN users u ON u.id = r.recommended_user_id
		 WHERE r.user_id = ?
		 ORDER BY r.score DESC, u.username ASC
		 LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing recommendations: %w", err)
	}
	defer rows.Close()

	recs := []model.Recommendation{}
	for rows.Next() {
		var r model.Recommendation
		err := rows.Scan(&r.ID, &r.Username, &r.DisplayName, &r.Bio, &r.AvatarURL,
			&r.FollowersCount, &r.Reason, &r.Score)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning recommendation: %w", err)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// RefreshTrendingPosts recomputes the trending score table. The score decays
// with age: likes divided by hours since posting (plus one to keep fresh
// posts finite).
func (db *DB) RefreshTrendingPosts(ctx context.Context) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning trending refresh: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM trending_posts`); err != nil {
		return fmt.Errorf("sqlite: clearing trending posts: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO trending_posts (post_id, score, refreshed_at)
		 SELECT id,
		        CAST(like_count AS REAL) / ((julianday('now') - julianday(created_at)) * 24.0 + 1.0),
		        ?
		 FROM posts
		 WHERE like_count > 0`,
		time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("sqlite: scoring trending posts: %w", err)
	}

	return tx.Commit()
}
