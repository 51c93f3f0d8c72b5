// Package validate holds the pure input validators shared by the auth and
// profile flows. No dependencies, no I/O — every function is a plain check
// on its arguments so it can be called from any layer.
package validate

import (
	"regexp"
	"strings"

	"github.com/likey-social/likey/internal/apperror"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
	MinPasswordLength = 6
	MaxBioLength      = 500
	MaxMessageLength  = 2000
)

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Email checks basic email shape: one @, no whitespace, a dot in the domain.
// Deliverability is the mail provider's problem, not ours.
func Email(email string) error {
	if email == "" {
		return apperror.ValidationFailed("email", "Email is required")
	}
	if !emailRe.MatchString(email) {
		return apperror.ValidationFailed("email", "Invalid email format")
	}
	return nil
}

// Username checks length and character set. Usernames are case-folded before
// storage, so validation accepts mixed case.
func Username(username string) error {
	if username == "" {
		return apperror.ValidationFailed("username", "Username is required")
	}
	if len(username) < MinUsernameLength {
		return apperror.ValidationFailed("username", "Username must be at least 3 characters")
	}
	if len(username) > MaxUsernameLength {
		return apperror.ValidationFailed("username", "Username must be less than 20 characters")
	}
	if !usernameRe.MatchString(username) {
		return apperror.ValidationFailed("username", "Username can only contain letters, numbers, and underscores")
	}
	return nil
}

// Password enforces the minimum length only; complexity rules are not worth
// the support burden.
func Password(password string) error {
	if password == "" {
		return apperror.ValidationFailed("password", "Password is required")
	}
	if len(password) < MinPasswordLength {
		return apperror.ValidationFailed("password", "Password must be at least 6 characters")
	}
	return nil
}

// DisplayName requires a non-blank display name.
func DisplayName(name string) error {
	if strings.TrimSpace(name) == "" {
		return apperror.ValidationFailed("display_name", "Display name is required")
	}
	return nil
}

// MessageContent trims the content and checks it is non-empty and within the
// length cap. Returns the trimmed content.
func MessageContent(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", apperror.ValidationFailed("content", "Message content is required")
	}
	if len(trimmed) > MaxMessageLength {
		return "", apperror.ValidationFailed("content", "Message content is too long")
	}
	return trimmed, nil
}

// Bio caps profile bio length. Empty bios are fine.
func Bio(bio string) error {
	if len(bio) > MaxBioLength {
		return apperror.ValidationFailed("bio", "Bio is too long")
	}
	return nil
}
