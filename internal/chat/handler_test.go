package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/avdeyev/botchat/internal/auth"
	"github.com/avdeyev/botchat/internal/domain"
	"github.com/avdeyev/botchat/internal/session"
	"github.com/avdeyev/botchat/internal/store"
	"github.com/go-chi/chi/v5"
)

// newTestServer builds a router with the session middleware and chat
// handler, plus a logged-in session for alice.
func newTestServer(t *testing.T) (*chi.Mux, *domain.Session) {
	t.Helper()

	repo, err := store.NewJSONFile(filepath.Join(t.TempDir(), "user_data.json"))
	if err != nil {
		t.Fatalf("NewJSONFile failed: %v", err)
	}
	authSvc := auth.NewService(repo)
	if err := authSvc.Register(context.Background(), auth.RegisterRequest{
		Username: "alice", Password: "pw1", Email: "a@x.com", Phone: "555-1111",
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	sessions := session.NewManager(authSvc, nil)
	sess, err := sessions.Login(context.Background(), "alice", "pw1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	orchestrator := NewOrchestrator(botFunc(echoBot), time.Second, nil)
	handler := NewHandler(orchestrator, 100, time.Minute, 0)
	t.Cleanup(handler.Close)

	r := chi.NewRouter()
	r.Use(session.Middleware(sessions))
	handler.RegisterRoutes(r)

	return r, sess
}

func sessionCookie(sess *domain.Session) *http.Cookie {
	return &http.Cookie{Name: session.CookieName, Value: sess.Token}
}

func TestHandleMessageRequiresSession(t *testing.T) {
	r, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/message", strings.NewReader(`{"message":"hi"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestHandleMessageRejectsEmpty(t *testing.T) {
	r, sess := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/message", strings.NewReader(`{"message":"   "}`))
	req.AddCookie(sessionCookie(sess))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestHandleMessageExchanges(t *testing.T) {
	r, sess := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/message", strings.NewReader(`{"message":"hi"}`))
	req.AddCookie(sessionCookie(sess))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var msg domain.ChatMessage
	if err := json.NewDecoder(w.Body).Decode(&msg); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if msg.UserText != "hi" || msg.BotText != "echo: hi" {
		t.Errorf("Unexpected message: %+v", msg)
	}
	if sess.Transcript().Len() != 1 {
		t.Errorf("Expected transcript length 1, got %d", sess.Transcript().Len())
	}
}

func TestHandleHistoryReturnsTranscriptInOrder(t *testing.T) {
	r, sess := newTestServer(t)

	for _, text := range []string{"one", "two", "three"} {
		req := httptest.NewRequest(http.MethodPost, "/api/chat/message",
			strings.NewReader(`{"message":"`+text+`"}`))
		req.AddCookie(sessionCookie(sess))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("Message %q failed with status %d", text, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/chat/history", nil)
	req.AddCookie(sessionCookie(sess))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp struct {
		Messages []domain.ChatMessage `json:"messages"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode history: %v", err)
	}
	if len(resp.Messages) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(resp.Messages))
	}
	for i, want := range []string{"one", "two", "three"} {
		if resp.Messages[i].UserText != want {
			t.Errorf("History entry %d: got %q, want %q", i, resp.Messages[i].UserText, want)
		}
	}
}

func TestHandleMessageRateLimited(t *testing.T) {
	repo, err := store.NewJSONFile(filepath.Join(t.TempDir(), "user_data.json"))
	if err != nil {
		t.Fatalf("NewJSONFile failed: %v", err)
	}
	authSvc := auth.NewService(repo)
	if err := authSvc.Register(context.Background(), auth.RegisterRequest{
		Username: "alice", Password: "pw1", Email: "a@x.com", Phone: "555-1111",
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	sessions := session.NewManager(authSvc, nil)
	sess, err := sessions.Login(context.Background(), "alice", "pw1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	orchestrator := NewOrchestrator(botFunc(echoBot), time.Second, nil)
	handler := NewHandler(orchestrator, 2, time.Minute, 0)
	t.Cleanup(handler.Close)

	r := chi.NewRouter()
	r.Use(session.Middleware(sessions))
	handler.RegisterRoutes(r)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/chat/message", strings.NewReader(`{"message":"hi"}`))
		req.AddCookie(sessionCookie(sess))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("First two requests should pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("Third request should be rate limited, got %v", codes)
	}
}
