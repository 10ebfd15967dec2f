// Package session manages authenticated sessions and their lifecycle.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avdeyev/botchat/internal/auth"
	"github.com/avdeyev/botchat/internal/domain"
	"github.com/avdeyev/botchat/internal/store"
)

// ErrNotAuthenticated indicates an operation that requires a logged-in
// session was attempted anonymously.
var ErrNotAuthenticated = errors.New("not authenticated")

// ExpireCallback is called with a session's token when the TTL sweeper
// removes it, so transports can close live connections.
type ExpireCallback func(token string)

// Manager owns the token -> session registry. Sessions are created on login
// and destroyed on logout or TTL expiry; their transcripts go with them.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session

	auth    *auth.Service
	history store.HistoryRepository // nil when durable history is disabled
}

// NewManager creates a session manager. history may be nil, in which case
// transcripts are ephemeral per session.
func NewManager(authSvc *auth.Service, history store.HistoryRepository) *Manager {
	return &Manager{
		sessions: make(map[string]*domain.Session),
		auth:     authSvc,
		history:  history,
	}
}

// Login validates the credentials and, on success, creates a fresh
// authenticated session with the chat view active and an empty transcript.
// Failure leaves no state behind.
func (m *Manager) Login(ctx context.Context, username, password string) (*domain.Session, error) {
	if !m.auth.Validate(ctx, username, password) {
		return nil, auth.ErrInvalidCredentials
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	sess := domain.NewSession(token, username)

	if m.history != nil {
		msgs, err := m.history.GetMessages(ctx, username)
		if err != nil {
			slog.Warn("failed to load chat history", "username", username, "error", err)
		} else {
			for _, msg := range msgs {
				sess.Transcript().Append(msg)
			}
		}
	}

	m.mu.Lock()
	m.sessions[token] = sess
	m.mu.Unlock()

	slog.Info("session created", "username", username)
	return sess, nil
}

// Logout destroys the session for token unconditionally. The session's
// transcript is discarded with it. Unknown tokens are a no-op.
func (m *Manager) Logout(token string) {
	m.mu.Lock()
	sess, ok := m.sessions[token]
	delete(m.sessions, token)
	m.mu.Unlock()

	if ok {
		slog.Info("session ended", "username", sess.Username)
	}
}

// Get returns the session for token, or nil for unknown tokens.
func (m *Manager) Get(token string) *domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[token]
}

// Navigate selects the active view for the session identified by token.
// Navigating anonymously fails with ErrNotAuthenticated.
func (m *Manager) Navigate(token string, view domain.View) error {
	sess := m.Get(token)
	if sess == nil {
		return ErrNotAuthenticated
	}
	sess.Navigate(view)
	return nil
}

// ActiveCount returns the number of live sessions.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// StartTTLWorker runs a background goroutine that periodically sweeps for
// sessions idle longer than ttl and destroys them.
func (m *Manager) StartTTLWorker(ctx context.Context, ttl, interval time.Duration, onExpire ExpireCallback) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("session TTL worker started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				m.Sweep(ttl, onExpire)
			case <-ctx.Done():
				slog.Info("session TTL worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// Sweep destroys every session idle longer than ttl and invokes onExpire for
// each removed token.
func (m *Manager) Sweep(ttl time.Duration, onExpire ExpireCallback) {
	m.mu.Lock()
	var expired []*domain.Session
	for token, sess := range m.sessions {
		if sess.Expired(ttl) {
			delete(m.sessions, token)
			expired = append(expired, sess)
		}
	}
	m.mu.Unlock()

	for _, sess := range expired {
		slog.Info("session expired", "username", sess.Username)
		if onExpire != nil {
			onExpire(sess.Token)
		}
	}
}

func generateToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
