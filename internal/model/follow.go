package model

import "time"

// Follow is a directed edge: follower → following.
// The pair is unique and self-follows are rejected at both the service and
// schema level.
type Follow struct {
	FollowerID  string    `json:"follower_id"`
	FollowingID string    `json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}
