// Package store provides credential persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/avdeyev/botchat/internal/domain"
)

// Repository defines the interface for persisting credential records.
type Repository interface {
	// GetCredential retrieves a credential record by username.
	// Returns (nil, nil) when the username is unknown.
	GetCredential(ctx context.Context, username string) (*domain.Credential, error)

	// UpsertCredential atomically creates or replaces the record for the
	// credential's username (last write wins). Concurrent upserts of
	// distinct usernames must all survive.
	UpsertCredential(ctx context.Context, cred *domain.Credential) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// HistoryRepository is implemented by backends that can persist chat
// transcripts across sessions for the same username.
type HistoryRepository interface {
	// AppendMessage durably appends one exchanged message for a username.
	AppendMessage(ctx context.Context, username string, msg domain.ChatMessage) error

	// GetMessages returns all persisted messages for a username in
	// insertion order.
	GetMessages(ctx context.Context, username string) ([]domain.ChatMessage, error)

	// DeleteMessages removes all persisted messages for a username.
	DeleteMessages(ctx context.Context, username string) error
}
