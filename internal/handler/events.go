package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/likey-social/likey/internal/auth"
	"github.com/likey-social/likey/internal/model"
	"github.com/likey-social/likey/internal/service"
)

// EventsHandler bridges the in-process push channels to the browser over
// Server-Sent Events. One stream per subscription: the client opens
// /api/conversations/{id}/events for live messages and
// /api/notifications/events for its notification feed.
//
// SSE rather than WebSockets because the flow is strictly server → client;
// all client writes go through the normal REST endpoints.
type EventsHandler struct {
	messages      *service.MessageService
	notifications *service.NotificationService
	logger        *slog.Logger
}

// NewEventsHandler creates an EventsHandler.
func NewEventsHandler(
	messages *service.MessageService,
	notifications *service.NotificationService,
	logger *slog.Logger,
) *EventsHandler {
	return &EventsHandler{
		messages:      messages,
		notifications: notifications,
		logger:        logger,
	}
}

// sseWriter serializes records onto one SSE stream. Writes are funneled
// through a channel because push callbacks arrive on the hub's dispatcher
// goroutine while the HTTP handler owns the ResponseWriter.
type sseWriter struct {
	events chan any
}

func (s *sseWriter) send(v any) {
	select {
	case s.events <- v:
	default:
		// Client is too slow to keep up; it will resync on reconnect.
	}
}

// serveStream writes queued records as SSE frames until the client
// disconnects.
func serveStream(w http.ResponseWriter, r *http.Request, events <-chan any, logger *slog.Logger) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case v := <-events:
			payload, err := json.Marshal(v)
			if err != nil {
				logger.Error("failed to encode SSE payload", slog.String("error", err.Error()))
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

// HandleConversationEvents streams new messages in one conversation.
//
// HTTP: GET /api/conversations/{conversationID}/events
func (h *EventsHandler) HandleConversationEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, errNotAuthenticated())
		return
	}

	conversationID := chi.URLParam(r, "conversationID")
	stream := &sseWriter{events: make(chan any, 32)}

	sub, err := h.messages.SubscribeToMessages(r.Context(), userID, conversationID, func(msg *model.Message) {
		stream.send(msg)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	defer sub.Close()

	serveStream(w, r, stream.events, h.logger)
}

// HandleNotificationEvents streams the caller's new notifications. Opening a
// second stream for the same user supersedes the first.
//
// HTTP: GET /api/notifications/events
func (h *EventsHandler) HandleNotificationEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, errNotAuthenticated())
		return
	}

	stream := &sseWriter{events: make(chan any, 32)}

	sub, err := h.notifications.Subscribe(userID, func(n *model.Notification) {
		stream.send(n)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	// Release rather than Close so the service's active-subscription map is
	// cleared too (unless a newer stream has already replaced this one).
	defer h.notifications.Release(userID, sub)

	serveStream(w, r, stream.events, h.logger)
}
