package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/avdeyev/botchat/internal/domain"
	"github.com/avdeyev/botchat/internal/session"
)

// botFunc adapts a function to the bot.Client interface.
type botFunc func(ctx context.Context, text string) (string, error)

func (f botFunc) Generate(ctx context.Context, text string) (string, error) { return f(ctx, text) }
func (f botFunc) Close() error                                              { return nil }

func echoBot(_ context.Context, text string) (string, error) {
	return "echo: " + text, nil
}

func TestSendMessageRequiresSession(t *testing.T) {
	o := NewOrchestrator(botFunc(echoBot), time.Second, nil)

	_, err := o.SendMessage(context.Background(), nil, "hi")
	if !errors.Is(err, session.ErrNotAuthenticated) {
		t.Errorf("Expected ErrNotAuthenticated, got %v", err)
	}
}

func TestSendMessageRejectsEmptyText(t *testing.T) {
	o := NewOrchestrator(botFunc(echoBot), time.Second, nil)
	sess := domain.NewSession("tok", "alice")

	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := o.SendMessage(context.Background(), sess, text); !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("SendMessage(%q): expected ErrEmptyMessage, got %v", text, err)
		}
	}
	if sess.Transcript().Len() != 0 {
		t.Error("Rejected messages must not reach the transcript")
	}
}

func TestSendMessageAppendsInCallOrder(t *testing.T) {
	o := NewOrchestrator(botFunc(echoBot), time.Second, nil)
	sess := domain.NewSession("tok", "alice")

	for i := 0; i < 5; i++ {
		text := fmt.Sprintf("message %d", i)
		msg, err := o.SendMessage(context.Background(), sess, text)
		if err != nil {
			t.Fatalf("SendMessage failed: %v", err)
		}
		if msg.UserText != text {
			t.Errorf("Expected user text %q, got %q", text, msg.UserText)
		}
		if msg.BotText != "echo: "+text {
			t.Errorf("Expected bot text %q, got %q", "echo: "+text, msg.BotText)
		}
	}

	msgs := sess.Transcript().Messages()
	if len(msgs) != 5 {
		t.Fatalf("Expected 5 transcript entries, got %d", len(msgs))
	}
	for i, msg := range msgs {
		want := fmt.Sprintf("message %d", i)
		if msg.UserText != want {
			t.Errorf("Transcript entry %d: got %q, want %q", i, msg.UserText, want)
		}
	}
}

func TestSendMessageFallbackOnBotError(t *testing.T) {
	failing := botFunc(func(context.Context, string) (string, error) {
		return "", errors.New("model unavailable")
	})
	o := NewOrchestrator(failing, time.Second, nil)
	sess := domain.NewSession("tok", "alice")

	msg, err := o.SendMessage(context.Background(), sess, "hello")
	if err != nil {
		t.Fatalf("Bot failure must not surface as an error, got %v", err)
	}
	if msg.BotText != FallbackReply {
		t.Errorf("Expected fallback reply %q, got %q", FallbackReply, msg.BotText)
	}
	if msg.UserText != "hello" {
		t.Errorf("Expected user text to be recorded, got %q", msg.UserText)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Expected a real timestamp on the fallback entry")
	}
	if sess.Transcript().Len() != 1 {
		t.Error("Fallback entry must still be appended to the transcript")
	}
}

func TestSendMessageFallbackOnTimeout(t *testing.T) {
	slow := botFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	o := NewOrchestrator(slow, 10*time.Millisecond, nil)
	sess := domain.NewSession("tok", "alice")

	start := time.Now()
	msg, err := o.SendMessage(context.Background(), sess, "hello")
	if err != nil {
		t.Fatalf("Timeout must not surface as an error, got %v", err)
	}
	if msg.BotText != FallbackReply {
		t.Errorf("Expected fallback reply on timeout, got %q", msg.BotText)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("SendMessage took %v, timeout is not bounding the call", elapsed)
	}
}

func TestSendMessageTrimsInput(t *testing.T) {
	o := NewOrchestrator(botFunc(echoBot), time.Second, nil)
	sess := domain.NewSession("tok", "alice")

	msg, err := o.SendMessage(context.Background(), sess, "  hi  ")
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if msg.UserText != "hi" {
		t.Errorf("Expected trimmed user text %q, got %q", "hi", msg.UserText)
	}
}

func TestAliceScenario(t *testing.T) {
	client := botFunc(func(_ context.Context, text string) (string, error) {
		if text == "hi" {
			return "hello!", nil
		}
		return "ok", nil
	})
	o := NewOrchestrator(client, time.Second, nil)
	sess := domain.NewSession("tok", "alice")

	msg, err := o.SendMessage(context.Background(), sess, "hi")
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	msgs := sess.Transcript().Messages()
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 transcript entry, got %d", len(msgs))
	}
	if msgs[0].UserText != "hi" || msgs[0].BotText != "hello!" {
		t.Errorf("Unexpected transcript entry: %+v", msgs[0])
	}
	if msg.BotText != "hello!" {
		t.Errorf("Expected returned message to match transcript, got %q", msg.BotText)
	}
}
