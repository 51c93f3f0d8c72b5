// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code — no C compiler needed, works everywhere
// Go works.
package sqlite

import (
	"database/sql"
	"fmt"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides the repository methods.
// One *DB implements every repository interface; the server hands the same
// value to each service as the narrow interface it needs.
type DB struct {
	conn *sql.DB
}

// New opens the SQLite database at dbPath (":memory:" for tests), verifies
// the connection, configures pragmas, and runs migrations.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows concurrent reads while a write is in progress —
	// essential for a web server sharing one database file.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite for backwards compatibility.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool. Always defer Close() next to
// New() so the WAL is flushed and the file lock released on shutdown.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates all tables. CREATE TABLE IF NOT EXISTS keeps this safe to
// run on every startup; a real migration tracker (golang-migrate) can replace
// it once the schema starts evolving in production.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			username      TEXT NOT NULL UNIQUE,
			display_name  TEXT NOT NULL,
			bio           TEXT NOT NULL DEFAULT '',
			avatar_url    TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL DEFAULT '',
			github_id     INTEGER NOT NULL DEFAULT 0,
			created_at    DATETIME NOT NULL,
			updated_at    DATETIME NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_github_id
			ON users(github_id) WHERE github_id <> 0;
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// No uniqueness constraint on the participant pair: the pair is
	// unordered, so the both-orders lookup in FindByParticipants is the
	// dedup mechanism. The CHECK rejects self-conversations.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS conversations (
			id              TEXT PRIMARY KEY,
			user1_id        TEXT NOT NULL REFERENCES users(id),
			user2_id        TEXT NOT NULL REFERENCES users(id),
			last_message_at DATETIME NOT NULL,
			created_at      DATETIME NOT NULL,
			CHECK (user1_id <> user2_id)
		);
		CREATE INDEX IF NOT EXISTS idx_conversations_user1 ON conversations(user1_id);
		CREATE INDEX IF NOT EXISTS idx_conversations_user2 ON conversations(user2_id);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_pair
			ON conversations(min(user1_id, user2_id), max(user1_id, user2_id));
	`)
	if err != nil {
		return fmt.Errorf("creating conversations table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id              TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL REFERENCES conversations(id),
			sender_id       TEXT NOT NULL REFERENCES users(id),
			content         TEXT NOT NULL,
			read            INTEGER NOT NULL DEFAULT 0,
			created_at      DATETIME NOT NULL,
			edited_at       DATETIME,
			forwarded_from  TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_messages_conversation
			ON messages(conversation_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating messages table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS notifications (
			id              TEXT PRIMARY KEY,
			user_id         TEXT NOT NULL REFERENCES users(id),
			type            TEXT NOT NULL,
			message         TEXT NOT NULL,
			related_user_id TEXT NOT NULL DEFAULT '',
			related_post_id TEXT NOT NULL DEFAULT '',
			read            INTEGER NOT NULL DEFAULT 0,
			created_at      DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_notifications_user
			ON notifications(user_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating notifications table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS follows (
			follower_id  TEXT NOT NULL REFERENCES users(id),
			following_id TEXT NOT NULL REFERENCES users(id),
			created_at   DATETIME NOT NULL,
			PRIMARY KEY (follower_id, following_id),
			CHECK (follower_id <> following_id)
		);
		CREATE INDEX IF NOT EXISTS idx_follows_following ON follows(following_id);
	`)
	if err != nil {
		return fmt.Errorf("creating follows table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS posts (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			content    TEXT NOT NULL,
			image_url  TEXT NOT NULL DEFAULT '',
			like_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);
		CREATE TABLE IF NOT EXISTS likes (
			post_id    TEXT NOT NULL REFERENCES posts(id),
			user_id    TEXT NOT NULL REFERENCES users(id),
			created_at DATETIME NOT NULL,
			PRIMARY KEY (post_id, user_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating posts tables: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS trending_posts (
			post_id      TEXT PRIMARY KEY REFERENCES posts(id),
			score        REAL NOT NULL,
			refreshed_at DATETIME NOT NULL
		);
		CREATE TABLE IF NOT EXISTS user_recommendations (
			user_id             TEXT NOT NULL REFERENCES users(id),
			recommended_user_id TEXT NOT NULL REFERENCES users(id),
			reason              TEXT NOT NULL,
			score               REAL NOT NULL,
			created_at          DATETIME NOT NULL,
			PRIMARY KEY (user_id, recommended_user_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating discovery tables: %w", err)
	}

	return nil
}
