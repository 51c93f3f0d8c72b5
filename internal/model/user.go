// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account plus its public profile.
//
// Identity creation is two-sided: email/password sign-up creates the row with
// a bcrypt PasswordHash, while GitHub OAuth sign-in creates (or updates) the
// row keyed by GitHubID. Either path produces the same User — the rest of the
// app never cares how someone authenticated.
//
// Username is stored lowercased so uniqueness is case-insensitive.
// PasswordHash never leaves the server (json:"-").
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	Bio          string    `json:"bio"`
	AvatarURL    string    `json:"avatar_url"`
	PasswordHash string    `json:"-"`
	GitHubID     int64     `json:"-"` // 0 unless the account was linked via GitHub OAuth
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserSummary is the slim profile shape embedded in messages, conversations,
// and notifications — just enough to render an avatar and a name.
type UserSummary struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// Summary returns the embeddable profile shape for this user.
func (u *User) Summary() *UserSummary {
	return &UserSummary{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

// ProfileUpdate carries the mutable profile fields for an update request.
// Nil pointers mean "leave unchanged".
type ProfileUpdate struct {
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
	AvatarURL   *string `json:"avatar_url"`
}
