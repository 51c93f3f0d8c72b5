package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/likey-social/likey/internal/auth"
	"github.com/likey-social/likey/internal/service"
)

// DiscoveryHandler serves the search and discovery read endpoints. All of
// them sit behind OptionalAuth: anonymous callers get results without the
// viewer-specific annotations.
type DiscoveryHandler struct {
	discovery *service.DiscoveryService
	logger    *slog.Logger
}

// NewDiscoveryHandler creates a DiscoveryHandler.
func NewDiscoveryHandler(discovery *service.DiscoveryService, logger *slog.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{discovery: discovery, logger: logger}
}

func queryLimit(r *http.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

// HandleSearchUsers matches users by username or display name.
//
// HTTP: GET /api/search/users?q=term
func (h *DiscoveryHandler) HandleSearchUsers(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())

	results, err := h.discovery.SearchUsers(r.Context(), viewerID, r.URL.Query().Get("q"), queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, results)
}

// HandleTrendingPosts returns posts by trending score.
//
// HTTP: GET /api/discover/trending-posts
func (h *DiscoveryHandler) HandleTrendingPosts(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())

	posts, err := h.discovery.TrendingPosts(r.Context(), viewerID, queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, posts)
}

// HandleTrendingUsers returns high-follower accounts the viewer doesn't
// already follow.
//
// HTTP: GET /api/discover/trending-users
func (h *DiscoveryHandler) HandleTrendingUsers(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())

	users, err := h.discovery.TrendingUsers(r.Context(), viewerID, queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

// HandleExplorePosts returns posts by like count, then recency.
//
// HTTP: GET /api/discover/explore
func (h *DiscoveryHandler) HandleExplorePosts(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())

	posts, err := h.discovery.ExplorePosts(r.Context(), viewerID, queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, posts)
}

// HandleRecommendations refreshes and returns the caller's mutual-follow
// recommendations.
//
// HTTP: GET /api/discover/recommendations
func (h *DiscoveryHandler) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())

	recs, err := h.discovery.UserRecommendations(r.Context(), viewerID, queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, recs)
}

// HandleRefreshTrending recomputes the trending score table on demand.
//
// HTTP: POST /api/discover/trending-posts/refresh
func (h *DiscoveryHandler) HandleRefreshTrending(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserIDFromContext(r.Context()); !ok {
		writeError(w, errNotAuthenticated())
		return
	}

	if err := h.discovery.RefreshTrendingPosts(r.Context()); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
