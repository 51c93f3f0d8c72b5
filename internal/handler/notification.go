package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/likey-social/likey/internal/auth"
	"github.com/likey-social/likey/internal/service"
)

// NotificationHandler serves the notification feed endpoints.
type NotificationHandler struct {
	notifications *service.NotificationService
	logger        *slog.Logger
}

// NewNotificationHandler creates a NotificationHandler.
func NewNotificationHandler(notifications *service.NotificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, logger: logger}
}

// HandleLoad returns the caller's newest notifications and unread count.
//
// HTTP: GET /api/notifications
func (h *NotificationHandler) HandleLoad(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, errNotAuthenticated())
		return
	}

	feed, err := h.notifications.Load(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, feed)
}

// HandleMarkRead flags one notification as read.
//
// HTTP: POST /api/notifications/{notificationID}/read
func (h *NotificationHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, errNotAuthenticated())
		return
	}

	notificationID := chi.URLParam(r, "notificationID")
	if err := h.notifications.MarkRead(r.Context(), userID, notificationID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleMarkAllRead flags the caller's whole feed as read.
//
// HTTP: POST /api/notifications/read-all
func (h *NotificationHandler) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, errNotAuthenticated())
		return
	}

	if err := h.notifications.MarkAllRead(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
