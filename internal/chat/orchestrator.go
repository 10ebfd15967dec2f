// Package chat implements the orchestration between sessions and the bot
// capability: it validates the session, forwards user text to the bot, and
// appends the exchanged pair to the session transcript.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/avdeyev/botchat/internal/bot"
	"github.com/avdeyev/botchat/internal/domain"
	"github.com/avdeyev/botchat/internal/session"
	"github.com/avdeyev/botchat/internal/store"
)

// FallbackReply is recorded whenever the bot fails or times out. Chat
// continuity is prioritized over surfacing the error.
const FallbackReply = "Sorry, I couldn't process that. Please try again."

// ErrEmptyMessage indicates a message that is empty after trimming.
var ErrEmptyMessage = errors.New("message is empty")

const defaultBotTimeout = 30 * time.Second

// Orchestrator composes sessions, transcripts, and the bot client.
type Orchestrator struct {
	bot     bot.Client
	timeout time.Duration
	history store.HistoryRepository // nil when durable history is disabled
}

// NewOrchestrator creates an orchestrator. timeout bounds each bot call;
// history may be nil.
func NewOrchestrator(client bot.Client, timeout time.Duration, history store.HistoryRepository) *Orchestrator {
	if timeout <= 0 {
		timeout = defaultBotTimeout
	}
	return &Orchestrator{bot: client, timeout: timeout, history: history}
}

// SendMessage forwards user text to the bot and appends the exchanged pair
// to the session's transcript. Bot failures and timeouts are absorbed into
// the fallback reply: the call still succeeds and the message is still
// recorded with its real timestamp. Exchanges for one session are
// serialized, so transcript order equals call order.
func (o *Orchestrator) SendMessage(ctx context.Context, sess *domain.Session, text string) (domain.ChatMessage, error) {
	if sess == nil {
		return domain.ChatMessage{}, session.ErrNotAuthenticated
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ChatMessage{}, ErrEmptyMessage
	}

	var msg domain.ChatMessage
	sess.Exchange(func() {
		reply := o.generate(ctx, text)
		msg = domain.ChatMessage{
			UserText:  text,
			BotText:   reply,
			Timestamp: time.Now(),
		}
		sess.Transcript().Append(msg)
	})

	if o.history != nil {
		if err := o.history.AppendMessage(ctx, sess.Username, msg); err != nil {
			slog.Warn("failed to persist chat message", "username", sess.Username, "error", err)
		}
	}

	return msg, nil
}

func (o *Orchestrator) generate(ctx context.Context, text string) string {
	genCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	reply, err := o.bot.Generate(genCtx, text)
	if err != nil {
		slog.Warn("bot generation failed, using fallback reply", "error", err)
		return FallbackReply
	}
	return reply
}
