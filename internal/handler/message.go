package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/likey-social/likey/internal/auth"
	"github.com/likey-social/likey/internal/repository"
	"github.com/likey-social/likey/internal/service"
)

// MessageHandler serves the conversation and message endpoints.
type MessageHandler struct {
	messages *service.MessageService
	logger   *slog.Logger
}

// NewMessageHandler creates a MessageHandler.
func NewMessageHandler(messages *service.MessageService, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{messages: messages, logger: logger}
}

// listOptions reads limit/offset query params.
func listOptions(r *http.Request) repository.ListOptions {
	var opts repository.ListOptions
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Offset = n
		}
	}
	return opts
}

type openConversationRequest struct {
	UserID string `json:"user_id"`
}

// HandleOpenConversation returns the conversation with another user,
// creating it on first contact.
//
// HTTP: POST /api/conversations
func (h *MessageHandler) HandleOpenConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, errNotAuthenticated())
		return
	}

	var req openConversationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	conv, err := h.messages.GetOrCreateConversation(r.Context(), userID, req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// HandleListConversations returns the caller's conversations, most recently
// active first.
//
// HTTP: GET /api/conversations
func (h *MessageHandler) HandleListConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, errNotAuthenticated())
		return
	}

	convs, err := h.messages.UserConversations(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, convs)
}

// HandleListMessages returns a page of a conversation's messages,
// oldest first.
//
// HTTP: GET /api/conversations/{conversationID}/messages
func (h *MessageHandler) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, errNotAuthenticated())
		return
	}

	conversationID := chi.URLParam(r, "conversationID")
	msgs, err := h.messages.ConversationMessages(r.Context(), userID, conversationID, listOptions(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, msgs)
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

// HandleSendMessage stores a new message in the conversation.
//
// HTTP: POST /api/conversations/{conversationID}/messages
func (h *MessageHandler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, errNotAuthenticated())
		return
	}

	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	conversationID := chi.URLParam(r, "conversationID")
	msg, err := h.messages.SendMessage(r.Context(), userID, conversationID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

type editMessageRequest struct {
	Content string `json:"content"`
}

// HandleEditMessage replaces a message's content (sender only, within the
// five-minute window).
//
// HTTP: PATCH /api/messages/{messageID}
func (h *MessageHandler) HandleEditMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, errNotAuthenticated())
		return
	}

	var req editMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	messageID := chi.URLParam(r, "messageID")
	msg, err := h.messages.EditMessage(r.Context(), userID, messageID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

// HandleDeleteMessage removes a message (sender only, within the five-minute
// window).
//
// HTTP: DELETE /api/messages/{messageID}
func (h *MessageHandler) HandleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, errNotAuthenticated())
		return
	}

	messageID := chi.URLParam(r, "messageID")
	if err := h.messages.DeleteMessage(r.Context(), userID, messageID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type forwardMessageRequest struct {
	ConversationID string `json:"conversation_id"`
}

// HandleForwardMessage copies a message into another of the caller's
// conversations.
//
// HTTP: POST /api/messages/{messageID}/forward
func (h *MessageHandler) HandleForwardMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, errNotAuthenticated())
		return
	}

	var req forwardMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	messageID := chi.URLParam(r, "messageID")
	msg, err := h.messages.ForwardMessage(r.Context(), userID, messageID, req.ConversationID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// HandleMarkRead flags the other participant's messages in the conversation
// as read.
//
// HTTP: POST /api/conversations/{conversationID}/read
func (h *MessageHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, errNotAuthenticated())
		return
	}

	conversationID := chi.URLParam(r, "conversationID")
	if err := h.messages.MarkMessagesAsRead(r.Context(), userID, conversationID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleUnreadCount returns the caller's total unread message count.
//
// HTTP: GET /api/messages/unread-count
func (h *MessageHandler) HandleUnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, errNotAuthenticated())
		return
	}

	count, err := h.messages.UnreadMessageCount(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}
