package domain

import (
	"sync"
	"time"
)

// ChatMessage is one user/bot exchange. Immutable once created.
type ChatMessage struct {
	UserText  string    `json:"user_text"`
	BotText   string    `json:"bot_text"`
	Timestamp time.Time `json:"timestamp"`
}

// Transcript is an append-only, insertion-ordered log of chat messages.
// It is scoped to one session: created empty at login, discarded at logout.
type Transcript struct {
	mu       sync.Mutex
	messages []ChatMessage
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append adds a message to the end of the transcript. Existing entries are
// never mutated, reordered, or deduplicated.
func (t *Transcript) Append(msg ChatMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msg)
}

// Messages returns a snapshot of the transcript in insertion order.
// The snapshot is independent of later appends.
func (t *Transcript) Messages() []ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ChatMessage, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages in the transcript.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}
