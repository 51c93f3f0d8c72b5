package model

import "time"

// Notification types created by the various access modules.
const (
	NotificationFollow  = "follow"
	NotificationLike    = "like"
	NotificationComment = "comment"
	NotificationMessage = "message"
)

// Notification is one entry in a user's notification feed.
//
// RelatedUserID points at the user whose action triggered the notification
// (the follower, the liker, ...) and RelatedPostID at the post involved, when
// there is one. RelatedUser is the resolved profile summary for rendering.
type Notification struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Type          string    `json:"type"`
	Message       string    `json:"message"`
	RelatedUserID string    `json:"related_user_id,omitempty"`
	RelatedPostID string    `json:"related_post_id,omitempty"`
	Read          bool      `json:"read"`
	CreatedAt     time.Time `json:"created_at"`

	RelatedUser *UserSummary `json:"related_user,omitempty"`
}
