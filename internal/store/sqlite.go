package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/avdeyev/botchat/internal/domain"
	"github.com/avdeyev/botchat/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository and HistoryRepository using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // serializes writes to avoid SQLITE_BUSY under load
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS credentials (
		username TEXT PRIMARY KEY,
		password_hash TEXT NOT NULL,
		email TEXT NOT NULL,
		dob TEXT NOT NULL,
		phone TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		user_text TEXT NOT NULL,
		bot_text TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_username ON messages(username, id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetCredential retrieves a credential record by username.
func (s *SQLiteStore) GetCredential(ctx context.Context, username string) (*domain.Credential, error) {
	query := `
		SELECT username, password_hash, email, dob, phone, created_at, updated_at
		FROM credentials WHERE username = ?`

	row := s.db.QueryRowContext(ctx, query, username)

	var cred domain.Credential
	var createdAt, updatedAt int64

	err := row.Scan(
		&cred.Username, &cred.PasswordHash, &cred.Email,
		&cred.DateOfBirth, &cred.Phone, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan credential row: %w", err)
	}

	cred.CreatedAt = time.Unix(createdAt, 0)
	cred.UpdatedAt = time.Unix(updatedAt, 0)

	return &cred, nil
}

// UpsertCredential creates or replaces the record for a username. The whole
// read-merge-write is a single UPSERT statement, so concurrent registers
// cannot lose updates.
func (s *SQLiteStore) UpsertCredential(ctx context.Context, cred *domain.Credential) error {
	query := `
	INSERT INTO credentials (username, password_hash, email, dob, phone, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(username) DO UPDATE SET
		password_hash = excluded.password_hash,
		email = excluded.email,
		dob = excluded.dob,
		phone = excluded.phone,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at`

	return s.execWithRetry(ctx, func() error {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		_, err := s.db.ExecContext(ctx, query,
			cred.Username, cred.PasswordHash, cred.Email,
			cred.DateOfBirth, cred.Phone,
			cred.CreatedAt.Unix(), cred.UpdatedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("upsert credential: %w", err)
		}
		return nil
	})
}

// AppendMessage durably appends one exchanged message for a username.
func (s *SQLiteStore) AppendMessage(ctx context.Context, username string, msg domain.ChatMessage) error {
	query := `INSERT INTO messages (username, user_text, bot_text, created_at) VALUES (?, ?, ?, ?)`

	return s.execWithRetry(ctx, func() error {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		_, err := s.db.ExecContext(ctx, query,
			username, msg.UserText, msg.BotText, msg.Timestamp.Unix(),
		)
		if err != nil {
			return fmt.Errorf("append message: %w", err)
		}
		return nil
	})
}

// GetMessages returns all persisted messages for a username in insertion order.
func (s *SQLiteStore) GetMessages(ctx context.Context, username string) ([]domain.ChatMessage, error) {
	query := `SELECT user_text, bot_text, created_at FROM messages WHERE username = ? ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close message rows", "error", closeErr)
		}
	}()

	var messages []domain.ChatMessage
	for rows.Next() {
		var msg domain.ChatMessage
		var createdAt int64
		if err := rows.Scan(&msg.UserText, &msg.BotText, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		msg.Timestamp = time.Unix(createdAt, 0)
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}

// DeleteMessages removes all persisted messages for a username.
func (s *SQLiteStore) DeleteMessages(ctx context.Context, username string) error {
	return s.execWithRetry(ctx, func() error {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE username = ?`, username); err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		return nil
	})
}

// execWithRetry runs a write with exponential backoff on SQLITE_BUSY.
func (s *SQLiteStore) execWithRetry(ctx context.Context, fn func() error) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !shared.IsSQLiteConflictError(err) || i == maxRetries-1 {
			return err
		}
		delay := baseDelay * time.Duration(1<<i) // 100ms, 200ms, 400ms
		slog.Debug("sqlite write conflict, retrying", "attempt", i+1, "delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
