// Package auth provides JWT session tokens, password hashing, the auth
// middleware, and the GitHub OAuth provider.
//
// SESSION MODEL:
// A signed-in user holds a JWT in an HttpOnly cookie. The token is stateless:
// the server verifies the signature and expiry without a session table, and
// the Subject claim carries the internal user ID. Middleware validates the
// cookie and puts the user ID in the request context; every service takes the
// caller's ID explicitly from there — no ambient global session state.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "likey"

// AccessTokenTTL is the lifetime of a session token.
const AccessTokenTTL = 24 * time.Hour

// TokenService handles JWT creation and validation. It holds the HMAC secret
// used to sign and verify; the same secret must serve both operations.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production,
// e.g. JWT_SECRET=$(openssl rand -hex 32).
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims embeds jwt.RegisteredClaims; the Subject claim stores the internal
// user ID.
type claims struct {
	jwt.RegisteredClaims
}

// Generate creates and signs a new access token for the given userID.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, AccessTokenTTL)
}

// GenerateWithDuration creates a token with a custom expiry. Used for
// password-reset tokens and in tests.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string, returning the userID from the
// Subject claim.
//
// Pinning the algorithm to HS256 with jwt.WithValidMethods blocks algorithm
// confusion attacks; the issuer check rejects tokens minted by other apps
// sharing the library defaults.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}

	if c.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}

	return c.Subject, nil
}
