package domain

import (
	"sync"
	"time"
)

// View identifies which surface an authenticated session is looking at.
type View string

const (
	// ViewChat is the chat surface and the default view after login.
	ViewChat View = "chat"
	// ViewProfile is the profile surface.
	ViewProfile View = "profile"
)

// ParseView maps a page parameter to a View. Unrecognized values fall back
// to the chat view.
func ParseView(s string) View {
	if s == string(ViewProfile) {
		return ViewProfile
	}
	return ViewChat
}

// Session is the authenticated context for one logged-in user. A Session
// exists only while authenticated; an anonymous caller simply has no
// session. The zero view after login is ViewChat.
type Session struct {
	Token    string
	Username string
	LoginAt  time.Time

	mu         sync.Mutex
	activeView View
	lastSeenAt time.Time
	transcript *Transcript

	// chatMu serializes message exchanges; see Exchange.
	chatMu sync.Mutex
}

// NewSession creates an authenticated session with an empty transcript and
// the chat view active.
func NewSession(token, username string) *Session {
	now := time.Now()
	return &Session{
		Token:      token,
		Username:   username,
		LoginAt:    now,
		activeView: ViewChat,
		lastSeenAt: now,
		transcript: NewTranscript(),
	}
}

// ActiveView returns the currently selected view.
func (s *Session) ActiveView() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeView
}

// Navigate selects the active view.
func (s *Session) Navigate(v View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeView = v
}

// Touch records activity, deferring TTL expiry.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeenAt = time.Now()
}

// Expired reports whether the session has been idle longer than ttl.
func (s *Session) Expired(ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastSeenAt) > ttl
}

// Transcript returns the session's chat transcript.
func (s *Session) Transcript() *Transcript {
	return s.transcript
}

// Exchange runs fn while holding the session's chat lock. Message exchanges
// for one session are serialized so transcript order matches call order even
// when HTTP and WebSocket requests race.
func (s *Session) Exchange(fn func()) {
	s.chatMu.Lock()
	defer s.chatMu.Unlock()
	fn()
}
