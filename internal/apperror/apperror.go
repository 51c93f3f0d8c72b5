package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors for the application's error taxonomy. Services return
// AppErrors wrapping one of these; handlers map them to HTTP status codes
// with errors.Is and never let anything else leak to the client.
var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation error")
	ErrConflict         = errors.New("conflict")
	ErrForbidden        = errors.New("forbidden")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrAccessDenied     = errors.New("access denied")
	ErrWindowExpired    = errors.New("modification window expired")
)

type AppError struct {
	Err     error  // sentinel this error wraps
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Forbidden indicates the caller is a legitimate participant but not the
// owner of the targeted resource (e.g. editing someone else's message).
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// NotAuthenticated indicates the operation requires a signed-in user.
func NotAuthenticated() *AppError {
	return &AppError{
		Err:     ErrNotAuthenticated,
		Message: "Not authenticated",
	}
}

// AccessDenied indicates an authenticated caller who is not a participant or
// owner of the targeted resource.
func AccessDenied(message string) *AppError {
	return &AppError{
		Err:     ErrAccessDenied,
		Message: message,
	}
}

// WindowExpired indicates a message mutation attempted after the 5-minute
// window. The action ("edit" or "delete") keeps the messages distinct.
func WindowExpired(action string) *AppError {
	return &AppError{
		Err:     ErrWindowExpired,
		Message: fmt.Sprintf("You can only %s messages within 5 minutes of sending", action),
	}
}
