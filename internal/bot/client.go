// Package bot provides the reply-generation capability used by chat.
package bot

import (
	"context"
)

// Client turns user text into a bot reply. Implementations may be slow
// (model inference) or fail; callers bound each call with a context
// deadline and must not let a failure crash the session.
type Client interface {
	// Generate produces a reply for the given user text.
	Generate(ctx context.Context, text string) (string, error)

	// Close releases client resources.
	Close() error
}
