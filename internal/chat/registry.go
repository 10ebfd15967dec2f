package chat

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// ConnRegistry tracks the active chat WebSocket connection per session
// token, so the session TTL sweeper can close sockets of expired sessions.
type ConnRegistry struct {
	mu     sync.RWMutex
	active map[string]*websocket.Conn
}

// NewConnRegistry creates an empty registry.
func NewConnRegistry() *ConnRegistry {
	return &ConnRegistry{
		active: make(map[string]*websocket.Conn),
	}
}

// Register records the connection for a session token, replacing and
// closing any previous one.
func (r *ConnRegistry) Register(token string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.active[token]; ok && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "connection replaced")
	}
	r.active[token] = conn
}

// Unregister removes the connection for a session token if it is still the
// registered one.
func (r *ConnRegistry) Unregister(token string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.active[token]; ok && current == conn {
		delete(r.active, token)
	}
}

// CloseSession closes and removes the connection for a session token.
// Used as the session manager's expiry callback.
func (r *ConnRegistry) CloseSession(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.active[token]
	if !ok {
		return
	}
	_ = conn.Close(websocket.StatusNormalClosure, "session expired")
	delete(r.active, token)
	slog.Info("chat websocket closed by session expiry")
}

// Get returns the active connection for a session token, or nil.
func (r *ConnRegistry) Get(token string) *websocket.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active[token]
}
