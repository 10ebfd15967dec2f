package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/avdeyev/botchat/internal/domain"
)

// JSONFileStore implements Repository on top of a single JSON file keyed by
// username. All mutations hold the store mutex across the full
// load-merge-write sequence and land via an atomic rename, so concurrent
// registers cannot lose updates.
type JSONFileStore struct {
	mu   sync.Mutex
	path string
}

// NewJSONFile creates a JSON-file-backed repository at path. A missing file
// means "no users yet".
func NewJSONFile(path string) (*JSONFileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &JSONFileStore{path: path}, nil
}

// GetCredential retrieves a credential record by username.
func (s *JSONFileStore) GetCredential(_ context.Context, username string) (*domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.load()
	cred, ok := users[username]
	if !ok {
		return nil, nil
	}
	return &cred, nil
}

// UpsertCredential creates or replaces the record for a username.
func (s *JSONFileStore) UpsertCredential(_ context.Context, cred *domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.load()
	users[cred.Username] = *cred
	return s.save(users)
}

// load reads the whole store. A missing or unparsable file is treated as an
// empty store: logged, never surfaced to the caller.
func (s *JSONFileStore) load() map[string]domain.Credential {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to read credential store, treating as empty", "path", s.path, "error", err)
		}
		return make(map[string]domain.Credential)
	}

	var users map[string]domain.Credential
	if err := json.Unmarshal(data, &users); err != nil {
		slog.Warn("credential store is corrupt, treating as empty", "path", s.path, "error", err)
		return make(map[string]domain.Credential)
	}
	if users == nil {
		users = make(map[string]domain.Credential)
	}
	return users
}

// save writes the whole store through a temp file and rename, so readers
// never observe a partially written file.
func (s *JSONFileStore) save(users map[string]domain.Credential) error {
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".credentials-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp store file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync temp store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp store file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace credential store: %w", err)
	}
	return nil
}

// Ping verifies the store directory is accessible.
func (s *JSONFileStore) Ping(_ context.Context) error {
	if _, err := os.Stat(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("stat store directory: %w", err)
	}
	return nil
}

// Close is a no-op for the file-backed store.
func (s *JSONFileStore) Close() error {
	return nil
}
