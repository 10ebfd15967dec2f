// Package auth implements credential registration and validation.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avdeyev/botchat/internal/domain"
	"github.com/avdeyev/botchat/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// Service owns all credential records: it is the single writer to the
// repository and the only component that sees raw passwords. Passwords are
// stored as bcrypt hashes, never as plaintext.
type Service struct {
	repo store.Repository
	cost int
}

// NewService creates an auth service backed by repo.
func NewService(repo store.Repository) *Service {
	return &Service{repo: repo, cost: bcrypt.DefaultCost}
}

// RegisterRequest carries the fields collected by the registration form.
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Email       string `json:"email"`
	DateOfBirth string `json:"dob"`
	Phone       string `json:"phone"`
}

// Register validates the request, hashes the password, and durably upserts
// the credential record. Registering an existing username replaces its
// record entirely (last write wins).
func (s *Service) Register(ctx context.Context, req RegisterRequest) error {
	if strings.TrimSpace(req.Username) == "" ||
		req.Password == "" ||
		strings.TrimSpace(req.Email) == "" ||
		strings.TrimSpace(req.Phone) == "" {
		return fmt.Errorf("%w: username, password, email and phone are required", ErrMissingField)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	cred := &domain.Credential{
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: string(hash),
		Email:        strings.TrimSpace(req.Email),
		DateOfBirth:  strings.TrimSpace(req.DateOfBirth),
		Phone:        strings.TrimSpace(req.Phone),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.UpsertCredential(ctx, cred); err != nil {
		return fmt.Errorf("persist credential: %w", err)
	}

	slog.Info("credential registered", "username", cred.Username)
	return nil
}

// Validate reports whether username/password match a stored record.
// Unknown usernames, wrong passwords, and store read failures all yield
// false; a broken store is logged, never fatal.
func (s *Service) Validate(ctx context.Context, username, password string) bool {
	cred, err := s.repo.GetCredential(ctx, username)
	if err != nil {
		slog.Warn("credential lookup failed, treating user as unknown", "username", username, "error", err)
		return false
	}
	if cred == nil {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) == nil
}

// Profile returns the stored record for username, or nil when the username
// is unknown or the store cannot be read.
func (s *Service) Profile(ctx context.Context, username string) *domain.Credential {
	cred, err := s.repo.GetCredential(ctx, username)
	if err != nil {
		slog.Warn("profile lookup failed", "username", username, "error", err)
		return nil
	}
	return cred
}
