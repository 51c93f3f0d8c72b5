package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/likey-social/likey/internal/model"
	"github.com/likey-social/likey/internal/repository"
)

// Default result caps for the discovery surfaces.
const (
	DefaultSearchLimit         = 20
	DefaultTrendingPostLimit   = 10
	DefaultTrendingUserLimit   = 5
	DefaultExploreLimit        = 20
	DefaultRecommendationLimit = 10
)

// MinSearchTermLength is the shortest term worth querying; shorter input
// returns an empty result set instead of an error.
const MinSearchTermLength = 2

// DiscoveryService serves the search and discovery read surfaces. Every read
// here works for anonymous callers: an empty viewerID just means no
// "is following" or "liked by you" annotations.
type DiscoveryService struct {
	discovery repository.DiscoveryRepository
	logger    *slog.Logger
}

// NewDiscoveryService creates a DiscoveryService.
func NewDiscoveryService(discovery repository.DiscoveryRepository, logger *slog.Logger) *DiscoveryService {
	return &DiscoveryService{discovery: discovery, logger: logger}
}

// SearchUsers matches the trimmed term against usernames and display names,
// ordered by follower count. Terms under two characters return nothing.
func (s *DiscoveryService) SearchUsers(ctx context.Context, viewerID, term string, limit int) ([]model.SearchResult, error) {
	trimmed := strings.TrimSpace(term)
	if len(trimmed) < MinSearchTermLength {
		return []model.SearchResult{}, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	results, err := s.discovery.SearchUsers(ctx, trimmed, viewerID, limit)
	if err != nil {
		return nil, fmt.Errorf("service/discovery: searching users: %w", err)
	}
	return results, nil
}

// TrendingPosts returns posts by trending score descending.
func (s *DiscoveryService) TrendingPosts(ctx context.Context, viewerID string, limit int) ([]model.Post, error) {
	if limit <= 0 {
		limit = DefaultTrendingPostLimit
	}
	posts, err := s.discovery.TrendingPosts(ctx, viewerID, limit)
	if err != nil {
		return nil, fmt.Errorf("service/discovery: loading trending posts: %w", err)
	}
	return posts, nil
}

// TrendingUsers returns high-follower accounts, excluding the viewer and
// anyone they already follow.
func (s *DiscoveryService) TrendingUsers(ctx context.Context, viewerID string, limit int) ([]model.SearchResult, error) {
	if limit <= 0 {
		limit = DefaultTrendingUserLimit
	}
	users, err := s.discovery.TrendingUsers(ctx, viewerID, limit)
	if err != nil {
		return nil, fmt.Errorf("service/discovery: loading trending users: %w", err)
	}
	return users, nil
}

// ExplorePosts returns posts by like count, then recency.
func (s *DiscoveryService) ExplorePosts(ctx context.Context, viewerID string, limit int) ([]model.Post, error) {
	if limit <= 0 {
		limit = DefaultExploreLimit
	}
	posts, err := s.discovery.ExplorePosts(ctx, viewerID, limit)
	if err != nil {
		return nil, fmt.Errorf("service/discovery: loading explore posts: %w", err)
	}
	return posts, nil
}

// UserRecommendations refreshes and returns mutual-follow recommendations
// for the caller. Anonymous callers get an empty list.
//
// The refresh is best-effort: if regeneration fails, the previously stored
// recommendations are still served.
func (s *DiscoveryService) UserRecommendations(ctx context.Context, userID string, limit int) ([]model.Recommendation, error) {
	if userID == "" {
		return []model.Recommendation{}, nil
	}
	if limit <= 0 {
		limit = DefaultRecommendationLimit
	}

	if err := s.discovery.RefreshRecommendations(ctx, userID); err != nil {
		s.logger.Warn("recommendation refresh failed, serving stored results",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
	}

	recs, err := s.discovery.Recommendations(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("service/discovery: loading recommendations: %w", err)
	}
	return recs, nil
}

// RefreshTrendingPosts recomputes the trending score table. Meant to run
// periodically (and on demand from an admin endpoint).
func (s *DiscoveryService) RefreshTrendingPosts(ctx context.Context) error {
	if err := s.discovery.RefreshTrendingPosts(ctx); err != nil {
		return fmt.Errorf("service/discovery: refreshing trending posts: %w", err)
	}
	s.logger.Info("trending posts refreshed")
	return nil
}
