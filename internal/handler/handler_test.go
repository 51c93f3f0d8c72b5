package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/likey-social/likey/internal/auth"
	"github.com/likey-social/likey/internal/handler"
	"github.com/likey-social/likey/internal/model"
	"github.com/likey-social/likey/internal/realtime"
	"github.com/likey-social/likey/internal/repository/sqlite"
	"github.com/likey-social/likey/internal/service"
)

// testEnv wires the real service stack over an in-memory database so handler
// tests exercise the same code paths as production, minus the network.
type testEnv struct {
	db     *sqlite.DB
	router chi.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	hub := realtime.NewHub(logger)
	t.Cleanup(hub.Shutdown)

	tokens, err := auth.NewTokenService("handler-test-secret-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	passwords := auth.NewPasswordServiceForTest(4)

	authSvc := service.NewAuthService(db, tokens, passwords, logger)
	notifSvc := service.NewNotificationService(db, hub, logger)
	followSvc := service.NewFollowService(db, db, notifSvc, logger)
	msgSvc := service.NewMessageService(db, db, db, hub, logger)
	discoverySvc := service.NewDiscoveryService(db, logger)

	authH := handler.NewAuthHandler(authSvc, nil, logger)
	msgH := handler.NewMessageHandler(msgSvc, logger)
	followH := handler.NewFollowHandler(followSvc, logger)
	discoveryH := handler.NewDiscoveryHandler(discoverySvc, logger)

	r := chi.NewRouter()
	r.Post("/api/auth/signup", authH.HandleSignUp)
	r.Post("/api/auth/signin", authH.HandleSignIn)
	r.Post("/api/auth/reset/request", authH.HandleRequestPasswordReset)
	r.Get("/api/me", authH.HandleMe)
	r.Post("/api/conversations", msgH.HandleOpenConversation)
	r.Get("/api/conversations", msgH.HandleListConversations)
	r.Get("/api/conversations/{conversationID}/messages", msgH.HandleListMessages)
	r.Post("/api/conversations/{conversationID}/messages", msgH.HandleSendMessage)
	r.Patch("/api/messages/{messageID}", msgH.HandleEditMessage)
	r.Delete("/api/messages/{messageID}", msgH.HandleDeleteMessage)
	r.Get("/api/users/{userID}/follow", followH.HandleStatus)
	r.Post("/api/users/{userID}/follow", followH.HandleFollow)
	r.Post("/api/users/{userID}/follow/toggle", followH.HandleToggle)
	r.Get("/api/search/users", discoveryH.HandleSearchUsers)

	return &testEnv{db: db, router: r}
}

// do runs a request through the router. A non-empty userID is placed in the
// request context the same way the auth middleware would.
func (e *testEnv) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req = req.WithContext(auth.WithUserID(req.Context(), userID))
	}

	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response body %q: %v", rr.Body.String(), err)
	}
	return v
}

// signUp registers a user through the real endpoint and returns the created
// record.
func (e *testEnv) signUp(t *testing.T, username string) model.User {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email":        username + "@example.com",
		"password":     "password123",
		"username":     username,
		"display_name": username,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup for %s failed: %d %s", username, rr.Code, rr.Body.String())
	}
	return decodeBody[model.User](t, rr)
}

// openConversation creates (or finds) the conversation between two users.
func (e *testEnv) openConversation(t *testing.T, callerID, otherID string) model.Conversation {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/conversations", callerID, map[string]string{"user_id": otherID})
	if rr.Code != http.StatusOK {
		t.Fatalf("open conversation failed: %d %s", rr.Code, rr.Body.String())
	}
	return decodeBody[model.Conversation](t, rr)
}
