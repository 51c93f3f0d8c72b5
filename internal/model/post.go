package model

import "time"

// Post is a user's post as consumed by the discovery queries (trending and
// explore feeds). Post authoring itself lives with the UI-facing post module;
// discovery only reads and reshapes.
type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"image_url,omitempty"`
	LikeCount int       `json:"like_count"`
	CreatedAt time.Time `json:"created_at"`

	User        *UserSummary `json:"user,omitempty"`
	LikedByUser bool         `json:"liked_by_user"`
}

// SearchResult is a profile row shaped for user search and trending users.
type SearchResult struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	DisplayName    string `json:"display_name"`
	Bio            string `json:"bio"`
	AvatarURL      string `json:"avatar_url"`
	FollowersCount int    `json:"followers_count"`
	IsFollowing    bool   `json:"is_following"`
}

// Recommendation is a suggested user with the reason and score produced by
// the mutual-follow refresh procedure.
type Recommendation struct {
	SearchResult
	Reason string  `json:"recommendation_reason"`
	Score  float64 `json:"recommendation_score"`
}
