package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/likey-social/likey/internal/apperror"
	"github.com/likey-social/likey/internal/model"
	"github.com/likey-social/likey/internal/repository"
)

// FollowService manages follow edges and the notifications they trigger.
type FollowService struct {
	follows       repository.FollowRepository
	users         repository.UserRepository
	notifications *NotificationService
	logger        *slog.Logger
}

// NewFollowService creates a FollowService.
func NewFollowService(
	follows repository.FollowRepository,
	users repository.UserRepository,
	notifications *NotificationService,
	logger *slog.Logger,
) *FollowService {
	return &FollowService{
		follows:       follows,
		users:         users,
		notifications: notifications,
		logger:        logger,
	}
}

// CheckFollowStatus reports whether followerID follows followingID.
// Anonymous callers (empty followerID) are simply not following anyone.
func (s *FollowService) CheckFollowStatus(ctx context.Context, followerID, followingID string) (bool, error) {
	if followerID == "" {
		return false, nil
	}
	following, err := s.follows.FollowExists(ctx, followerID, followingID)
	if err != nil {
		return false, fmt.Errorf("service/follow: checking status: %w", err)
	}
	return following, nil
}

// Follow creates the edge follower → following and notifies the followed
// user. Following someone you already follow is a no-op.
func (s *FollowService) Follow(ctx context.Context, followerID, followingID string) error {
	if followerID == "" {
		return apperror.NotAuthenticated()
	}
	if followerID == followingID {
		return apperror.ValidationFailed("following_id", "Cannot follow yourself")
	}

	if _, err := s.users.GetUserByID(ctx, followingID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFound("user", followingID)
		}
		return fmt.Errorf("service/follow: checking target user: %w", err)
	}

	exists, err := s.follows.FollowExists(ctx, followerID, followingID)
	if err != nil {
		return fmt.Errorf("service/follow: checking existing edge: %w", err)
	}
	if exists {
		return nil
	}

	if err := s.follows.CreateFollow(ctx, followerID, followingID); err != nil {
		return fmt.Errorf("service/follow: creating edge: %w", err)
	}

	follower, err := s.users.GetUserByID(ctx, followerID)
	if err != nil {
		// The edge is in place; the notification is best-effort.
		s.logger.Warn("skipping follow notification",
			slog.String("followerID", followerID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	n := &model.Notification{
		UserID:        followingID,
		Type:          model.NotificationFollow,
		Message:       fmt.Sprintf("%s started following you", follower.DisplayName),
		RelatedUserID: followerID,
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		s.logger.Warn("failed to create follow notification",
			slog.String("followerID", followerID),
			slog.String("followingID", followingID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// Unfollow removes the edge follower → following. Unfollowing someone you
// don't follow is a no-op.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followingID string) error {
	if followerID == "" {
		return apperror.NotAuthenticated()
	}
	if err := s.follows.DeleteFollow(ctx, followerID, followingID); err != nil {
		return fmt.Errorf("service/follow: deleting edge: %w", err)
	}
	return nil
}

// ToggleFollow flips the follow state and returns the new state: true when
// the call resulted in following, false when it resulted in unfollowing.
func (s *FollowService) ToggleFollow(ctx context.Context, followerID, followingID string) (bool, error) {
	if followerID == "" {
		return false, apperror.NotAuthenticated()
	}

	exists, err := s.follows.FollowExists(ctx, followerID, followingID)
	if err != nil {
		return false, fmt.Errorf("service/follow: checking edge for toggle: %w", err)
	}

	if exists {
		if err := s.Unfollow(ctx, followerID, followingID); err != nil {
			return false, err
		}
		return false, nil
	}

	if err := s.Follow(ctx, followerID, followingID); err != nil {
		return false, err
	}
	return true, nil
}

// CheckMultipleFollowStatus returns a map with one entry per requested user
// ID: true when the caller follows them, false otherwise. Every requested ID
// appears in the result, and anonymous callers get an all-false map.
func (s *FollowService) CheckMultipleFollowStatus(ctx context.Context, followerID string, userIDs []string) (map[string]bool, error) {
	statuses := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		statuses[id] = false
	}
	if followerID == "" || len(userIDs) == 0 {
		return statuses, nil
	}

	following, err := s.follows.FollowingAmong(ctx, followerID, userIDs)
	if err != nil {
		return nil, fmt.Errorf("service/follow: checking multiple statuses: %w", err)
	}
	for _, id := range following {
		statuses[id] = true
	}
	return statuses, nil
}
