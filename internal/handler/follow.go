package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/likey-social/likey/internal/auth"
	"github.com/likey-social/likey/internal/service"
)

// FollowHandler serves the follow-edge endpoints.
type FollowHandler struct {
	follows *service.FollowService
	logger  *slog.Logger
}

// NewFollowHandler creates a FollowHandler.
func NewFollowHandler(follows *service.FollowService, logger *slog.Logger) *FollowHandler {
	return &FollowHandler{follows: follows, logger: logger}
}

// HandleStatus reports whether the caller follows the given user. Anonymous
// callers get false rather than a 401.
//
// HTTP: GET /api/users/{userID}/follow
func (h *FollowHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserIDFromContext(r.Context())
	targetID := chi.URLParam(r, "userID")

	following, err := h.follows.CheckFollowStatus(r.Context(), callerID, targetID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"following": following})
}

// HandleFollow creates the edge caller → target.
//
// HTTP: POST /api/users/{userID}/follow
func (h *FollowHandler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	callerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, errNotAuthenticated())
		return
	}

	targetID := chi.URLParam(r, "userID")
	if err := h.follows.Follow(r.Context(), callerID, targetID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"following": true})
}

// HandleUnfollow removes the edge caller → target.
//
// HTTP: DELETE /api/users/{userID}/follow
func (h *FollowHandler) HandleUnfollow(w http.ResponseWriter, r *http.Request) {
	callerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, errNotAuthenticated())
		return
	}

	targetID := chi.URLParam(r, "userID")
	if err := h.follows.Unfollow(r.Context(), callerID, targetID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"following": false})
}

// HandleToggle flips the follow state and returns the new state.
//
// HTTP: POST /api/users/{userID}/follow/toggle
func (h *FollowHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	callerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, errNotAuthenticated())
		return
	}

	targetID := chi.URLParam(r, "userID")
	following, err := h.follows.ToggleFollow(r.Context(), callerID, targetID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"following": following})
}

type batchStatusRequest struct {
	UserIDs []string `json:"user_ids"`
}

// HandleBatchStatus returns the follow state for a set of users in one call,
// keyed by user ID. Anonymous callers get an all-false map.
//
// HTTP: POST /api/follows/status
func (h *FollowHandler) HandleBatchStatus(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserIDFromContext(r.Context())

	var req batchStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	statuses, err := h.follows.CheckMultipleFollowStatus(r.Context(), callerID, req.UserIDs)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statuses)
}
