package chat

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/avdeyev/botchat/internal/session"
	"github.com/go-chi/chi/v5"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
const defaultMaxRequestBodySize = 1 << 20

// Handler serves the HTTP chat endpoints.
type Handler struct {
	orchestrator *Orchestrator
	limiter      *rateLimiter
	maxBodySize  int64
	done         chan struct{}
}

// NewHandler creates a chat handler. rateLimit requests per rateWindow are
// allowed per username.
func NewHandler(orchestrator *Orchestrator, rateLimit int, rateWindow time.Duration, maxBodySize int64) *Handler {
	if rateLimit <= 0 {
		rateLimit = 10
	}
	if rateWindow <= 0 {
		rateWindow = time.Minute
	}
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxRequestBodySize
	}

	done := make(chan struct{})
	return &Handler{
		orchestrator: orchestrator,
		limiter:      newRateLimiter(rateLimit, rateWindow, done),
		maxBodySize:  maxBodySize,
		done:         done,
	}
}

// RegisterRoutes registers chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/chat", func(r chi.Router) {
		r.Post("/message", h.HandleMessage)
		r.Get("/history", h.HandleHistory)
	})
}

// Close releases handler resources.
func (h *Handler) Close() {
	close(h.done)
}

type messageRequest struct {
	Message string `json:"message"`
}

// HandleMessage handles POST /api/chat/message requests.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess == nil {
		http.Error(w, `{"error": "not authenticated"}`, http.StatusUnauthorized)
		return
	}

	if !h.limiter.allow(sess.Username) {
		http.Error(w, `{"error": "rate limit exceeded"}`, http.StatusTooManyRequests)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}

	msg, err := h.orchestrator.SendMessage(r.Context(), sess, req.Message)
	if err != nil {
		if errors.Is(err, ErrEmptyMessage) {
			http.Error(w, `{"error": "message is required"}`, http.StatusBadRequest)
			return
		}
		http.Error(w, `{"error": "failed to process message"}`, http.StatusInternalServerError)
		return
	}

	slog.Info("chat message exchanged",
		"username", sess.Username,
		"message_length", len(msg.UserText),
	)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(msg); err != nil {
		slog.Warn("failed to encode chat response", "error", err)
	}
}

// HandleHistory handles GET /api/chat/history requests. It returns the
// session's transcript snapshot in insertion order.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess == nil {
		http.Error(w, `{"error": "not authenticated"}`, http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"messages": sess.Transcript().Messages(),
	}); err != nil {
		slog.Warn("failed to encode chat history", "error", err)
	}
}
