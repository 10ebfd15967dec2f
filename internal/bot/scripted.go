package bot

import (
	"context"
	"fmt"
	"strings"
)

// Scripted is a deterministic local Client used when no model API key is
// configured. It keeps the chat loop usable in development without network
// access.
type Scripted struct{}

// NewScripted creates a scripted client.
func NewScripted() *Scripted {
	return &Scripted{}
}

// Generate produces a canned reply for the given user text.
func (Scripted) Generate(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch lower := strings.ToLower(text); {
	case strings.Contains(lower, "hello"), strings.HasPrefix(lower, "hi"):
		return "Hello! How can I help you today?", nil
	case strings.Contains(lower, "bye"):
		return "Goodbye! Come back any time.", nil
	case strings.HasSuffix(strings.TrimSpace(text), "?"):
		return "That's a good question. I'm a scripted stand-in, so I can't really answer it.", nil
	default:
		return fmt.Sprintf("You said %q. Tell me more.", text), nil
	}
}

// Close is a no-op for the scripted client.
func (Scripted) Close() error {
	return nil
}
