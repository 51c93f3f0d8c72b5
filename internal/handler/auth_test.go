package handler_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/likey-social/likey/internal/handler"
	"github.com/likey-social/likey/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestAuthHandler_SignUp(t *testing.T) {
	env := newTestEnv(t)

	t.Run("valid signup", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
			"email":        "alice@example.com",
			"password":     "password123",
			"username":     "Alice",
			"display_name": "Alice",
		})

		assert.Equal(t, http.StatusCreated, rr.Code)

		user := decodeBody[model.User](t, rr)
		assert.NotEmpty(t, user.ID)
		assert.Equal(t, "alice", user.Username, "username should be stored lowercase")

		// The session lands in an HttpOnly cookie, not the body.
		cookies := rr.Result().Cookies()
		var found bool
		for _, c := range cookies {
			if c.Name == "token" && c.Value != "" {
				found = true
				assert.True(t, c.HttpOnly)
			}
		}
		assert.True(t, found, "signup should set the session cookie")
		assert.NotContains(t, rr.Body.String(), "password_hash")
	})

	t.Run("duplicate username conflicts", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
			"email":        "other@example.com",
			"password":     "password123",
			"username":     "ALICE",
			"display_name": "Other",
		})

		assert.Equal(t, http.StatusConflict, rr.Code)
		res := decodeBody[handler.ErrorResponse](t, rr)
		assert.Equal(t, "conflict", res.Error)
		assert.Equal(t, "Username already taken", res.Message)
	})

	t.Run("invalid body", func(t *testing.T) {
		req := env.do(t, http.MethodPost, "/api/auth/signup", "", nil)
		assert.Equal(t, http.StatusBadRequest, req.Code)
	})

	t.Run("short password rejected", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
			"email":        "short@example.com",
			"password":     "abc",
			"username":     "shorty",
			"display_name": "Shorty",
		})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		res := decodeBody[handler.ErrorResponse](t, rr)
		assert.Equal(t, "validation_error", res.Error)
	})
}

func TestAuthHandler_SignIn(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "alice")

	t.Run("correct credentials", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/auth/signin", "", map[string]string{
			"email":    "alice@example.com",
			"password": "password123",
		})

		assert.Equal(t, http.StatusOK, rr.Code)
		user := decodeBody[model.User](t, rr)
		assert.Equal(t, "alice", user.Username)
	})

	t.Run("wrong password", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/auth/signin", "", map[string]string{
			"email":    "alice@example.com",
			"password": "wrong-password",
		})

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		res := decodeBody[handler.ErrorResponse](t, rr)
		assert.Equal(t, "not_authenticated", res.Error)
		assert.Equal(t, "Invalid email or password", res.Message)
	})

	t.Run("unknown email reads the same as wrong password", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/auth/signin", "", map[string]string{
			"email":    "nobody@example.com",
			"password": "password123",
		})

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		res := decodeBody[handler.ErrorResponse](t, rr)
		assert.Equal(t, "Invalid email or password", res.Message)
	})
}

func TestAuthHandler_RequestPasswordReset(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "alice")

	// Known and unknown emails get the same response body and status, so
	// the endpoint cannot be used to probe which addresses are registered.
	// The token itself never appears in the response.
	for _, email := range []string{"alice@example.com", "nobody@example.com"} {
		rr := env.do(t, http.MethodPost, "/api/auth/reset/request", "", map[string]string{"email": email})

		assert.Equal(t, http.StatusOK, rr.Code)
		res := decodeBody[map[string]string](t, rr)
		assert.Equal(t, "If that email is registered, a reset link has been sent", res["message"])
		assert.NotContains(t, rr.Body.String(), "token")
	}
}

func TestAuthHandler_Me(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signUp(t, "alice")

	t.Run("authenticated", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/api/me", alice.ID, nil)

		assert.Equal(t, http.StatusOK, rr.Code)
		user := decodeBody[model.User](t, rr)
		assert.Equal(t, alice.ID, user.ID)
	})

	t.Run("anonymous", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/api/me", "", nil)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.True(t, strings.Contains(rr.Body.String(), "not_authenticated"))
	})
}
