// Package handler contains the HTTP layer: request decoding, auth-context
// extraction, service calls, and response encoding. No business rules live
// here.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/likey-social/likey/internal/apperror"
)

// ErrorResponse is the standard error format returned by every API endpoint:
//
//	{"error": "not_found", "message": "message not found with id abc123"}
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeJSON sends a JSON response with the given status code. Headers must be
// set before the first body write.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a service error to an HTTP status. The service layer
// returns AppErrors wrapping sentinels; this is the single place they become
// status codes, so the services never know about HTTP.
//
// Anything that is not an AppError comes back as an opaque 500 — raw error
// strings can leak SQL or file paths.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrNotAuthenticated):
			status = http.StatusUnauthorized
			errorType = "not_authenticated"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			errorType = "forbidden"
		case errors.Is(err, apperror.ErrAccessDenied):
			status = http.StatusForbidden
			errorType = "access_denied"
		case errors.Is(err, apperror.ErrWindowExpired):
			status = http.StatusForbidden
			errorType = "window_expired"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// errNotAuthenticated is the error for protected routes reached without a
// valid session (normally impossible behind RequireAuth, but handlers check
// anyway rather than trusting middleware ordering).
func errNotAuthenticated() error {
	return apperror.NotAuthenticated()
}

// decodeJSON reads a request body into dst, rejecting malformed payloads
// with a 400-shaped validation error.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "Invalid JSON body")
	}
	return nil
}
