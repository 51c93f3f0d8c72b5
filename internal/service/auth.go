// Package service holds the business logic layer. Each service sits between
// the HTTP handlers and the repositories:
//
//	handler (HTTP) → service (rules) → repository (DB)
//
// Services receive the caller's user ID explicitly from the handler — there
// is no ambient session state — and return AppErrors that the handlers map
// to HTTP status codes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/likey-social/likey/internal/apperror"
	"github.com/likey-social/likey/internal/auth"
	"github.com/likey-social/likey/internal/model"
	"github.com/likey-social/likey/internal/repository"
	"github.com/likey-social/likey/internal/validate"
)

// resetTokenTTL bounds how long a password-reset token stays usable.
const resetTokenTTL = time.Hour

// AuthService handles sign-up, sign-in, profile updates, and the GitHub
// OAuth callback.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user record and the issued JWT so the handler can
// set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// SignUp registers a new email/password account in a single step: the account
// is active immediately, no confirmation round-trip.
//
// Username availability is checked before the insert so the caller gets a
// precise "Username already taken" instead of a bare constraint error.
func (s *AuthService) SignUp(ctx context.Context, email, password, username, displayName string) (*AuthResult, error) {
	if err := validate.Email(email); err != nil {
		return nil, err
	}
	if err := validate.Password(password); err != nil {
		return nil, err
	}
	if err := validate.Username(username); err != nil {
		return nil, err
	}
	if err := validate.DisplayName(displayName); err != nil {
		return nil, err
	}

	if _, err := s.users.GetUserByUsername(ctx, username); err == nil {
		return nil, apperror.Conflict("Username already taken")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking username availability: %w", err)
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict("An account with this email already exists")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking email availability: %w", err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{
		Email:        email,
		Username:     username,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user (username=%s): %w", username, err)
	}

	s.logger.Info("user signed up",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// SignIn authenticates an email/password pair.
//
// Wrong email and wrong password both come back as the same "Invalid email
// or password" so the response doesn't confirm which accounts exist.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	if email == "" || password == "" {
		return nil, invalidCredentials()
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, invalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up user by email: %w", err)
	}

	// OAuth-only accounts have no password hash and can't sign in this way.
	if user.PasswordHash == "" {
		return nil, invalidCredentials()
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, invalidCredentials()
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user signed in", slog.String("userID", user.ID))

	return &AuthResult{User: user, Token: token}, nil
}

func invalidCredentials() *apperror.AppError {
	return &apperror.AppError{
		Err:     apperror.ErrNotAuthenticated,
		Message: "Invalid email or password",
	}
}

// RequestPasswordReset issues a short-lived reset token for the account with
// the given email. The token would normally be delivered by email; mail
// transport is outside this layer, so the caller decides what to do with it.
//
// Unknown emails return an empty token and no error so the endpoint doesn't
// reveal which addresses are registered.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	if err := validate.Email(email); err != nil {
		return "", err
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Info("password reset requested for unknown email")
			return "", nil
		}
		return "", fmt.Errorf("service/auth: looking up user for reset: %w", err)
	}

	token, err := s.tokens.GenerateWithDuration(user.ID, resetTokenTTL)
	if err != nil {
		return "", fmt.Errorf("service/auth: generating reset token: %w", err)
	}

	s.logger.Info("password reset token issued", slog.String("userID", user.ID))
	return token, nil
}

// ResetPassword applies a new password given a valid reset token.
func (s *AuthService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if err := validate.Password(newPassword); err != nil {
		return err
	}

	userID, err := s.tokens.Validate(resetToken)
	if err != nil {
		return apperror.NotAuthenticated()
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("service/auth: %w", err)
	}

	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("service/auth: updating password for user %s: %w", userID, err)
	}

	s.logger.Info("password reset", slog.String("userID", userID))
	return nil
}

// UpdateProfile validates and applies a partial profile update, returning the
// updated user.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, upd model.ProfileUpdate) (*model.User, error) {
	if userID == "" {
		return nil, apperror.NotAuthenticated()
	}
	if upd.DisplayName != nil {
		if err := validate.DisplayName(*upd.DisplayName); err != nil {
			return nil, err
		}
	}
	if upd.Bio != nil {
		if err := validate.Bio(*upd.Bio); err != nil {
			return nil, err
		}
	}

	user, err := s.users.UpdateProfile(ctx, userID, upd)
	if err != nil {
		return nil, fmt.Errorf("service/auth: updating profile for user %s: %w", userID, err)
	}
	return user, nil
}

// LoginOrRegisterGitHub handles the GitHub OAuth callback: upsert the user
// keyed by GitHub ID, then issue a JWT. First login inserts; later logins
// refresh the GitHub-owned fields (email, avatar).
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user := &model.User{
		GitHubID:    ghUser.ID,
		Username:    strings.ToLower(ghUser.Login),
		DisplayName: ghUser.Login,
		Email:       ghUser.Email,
		AvatarURL:   ghUser.AvatarURL,
	}

	if err := s.users.UpsertGitHubUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// GetUserByID returns the user for the given internal ID. Used by the
// /api/me handler after the middleware extracts the ID from the JWT.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// ValidateToken validates a JWT string and returns the userID it encodes.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	userID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}
