package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/likey-social/likey/internal/apperror"
	"github.com/likey-social/likey/internal/model"
	"github.com/likey-social/likey/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, email, username, display_name, bio, avatar_url, password_hash, github_id, created_at, updated_at`

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.DisplayName,
		&u.Bio,
		&u.AvatarURL,
		&u.PasswordHash,
		&u.GitHubID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user. Username is case-folded here so the UNIQUE
// constraint enforces case-insensitive uniqueness.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.Username = strings.ToLower(user.Username)
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.Username,
		user.DisplayName,
		user.Bio,
		user.AvatarURL,
		user.PasswordHash,
		user.GitHubID,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting user (username=%s): %w", user.Username, err)
	}
	return nil
}

// UpsertGitHubUser inserts or updates a user based on their GitHub ID, keeping
// the existing internal ID (and username) on update. Only profile fields that
// GitHub owns are refreshed.
func (db *DB) UpsertGitHubUser(ctx context.Context, user *model.User) error {
	var existingID string
	err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM users WHERE github_id = ?`, user.GitHubID,
	).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: looking up user by github_id %d: %w", user.GitHubID, err)
	}

	if existingID != "" {
		user.ID = existingID
		user.UpdatedAt = time.Now().UTC()
		_, err = db.conn.ExecContext(ctx,
			`UPDATE users SET email = ?, avatar_url = ?, updated_at = ?
			 WHERE id = ?`,
			user.Email,
			user.AvatarURL,
			user.UpdatedAt,
			user.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}

		fresh, err := db.GetUserByID(ctx, user.ID)
		if err != nil {
			return err
		}
		*user = *fresh
		return nil
	}

	return db.CreateUser(ctx, user)
}

// GetUserByID retrieves a user by internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetUserByEmail retrieves a user by email address.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

// GetUserByUsername retrieves a user by username, case-insensitively.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	folded := strings.ToLower(username)
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, folded))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("sqlite: getting user by username %s: %w", username, err)
	}
	return u, nil
}

// UpdateProfile applies the non-nil profile fields and returns the updated user.
func (db *DB) UpdateProfile(ctx context.Context, id string, upd model.ProfileUpdate) (*model.User, error) {
	user, err := db.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.DisplayName != nil {
		user.DisplayName = *upd.DisplayName
	}
	if upd.Bio != nil {
		user.Bio = *upd.Bio
	}
	if upd.AvatarURL != nil {
		user.AvatarURL = *upd.AvatarURL
	}
	user.UpdatedAt = time.Now().UTC()

	_, err = db.conn.ExecContext(ctx,
		`UPDATE users SET display_name = ?, bio = ?, avatar_url = ?, updated_at = ?
		 WHERE id = ?`,
		user.DisplayName,
		user.Bio,
		user.AvatarURL,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating profile %s: %w", id, err)
	}
	return user, nil
}

// UpdatePasswordHash replaces a user's stored password hash.
func (db *DB) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating password for user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// summaryByID loads the slim profile shape used for message/notification
// annotation. Unknown users come back nil rather than as an error so a
// dangling reference never breaks a feed query.
func (db *DB) summaryByID(ctx context.Context, id string) (*model.UserSummary, error) {
	if id == "" {
		return nil, nil
	}
	var s model.UserSummary
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, username, display_name, avatar_url FROM users WHERE id = ?`, id,
	).Scan(&s.ID, &s.Username, &s.DisplayName, &s.AvatarURL)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: loading user summary %s: %w", id, err)
	}
	return &s, nil
}
