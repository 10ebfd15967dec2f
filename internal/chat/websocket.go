package chat

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/avdeyev/botchat/internal/session"
	"github.com/coder/websocket"
)

// WebSocketHandler serves the bidirectional chat stream. Each inbound
// message goes through the same orchestrator as the HTTP endpoint, so the
// transcript stays consistent across transports.
type WebSocketHandler struct {
	orchestrator  *Orchestrator
	registry      *ConnRegistry
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a WebSocket chat handler.
func NewWebSocketHandler(orchestrator *Orchestrator, registry *ConnRegistry, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		orchestrator:  orchestrator,
		registry:      registry,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// wsMessage is the client -> server frame.
type wsMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// wsReply is the server -> client frame.
type wsReply struct {
	Type      string    `json:"type"`
	UserText  string    `json:"user_text,omitempty"`
	BotText   string    `json:"bot_text,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"`
	Error     string    `json:"error,omitempty"`
}

// ServeHTTP implements http.Handler for the WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess == nil {
		http.Error(w, `{"error": "not authenticated"}`, http.StatusUnauthorized)
		return
	}

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("failed to accept chat websocket", "error", err, "username", sess.Username)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "chat ended"); closeErr != nil {
			slog.Debug("failed to close chat websocket", "error", closeErr, "username", sess.Username)
		}
	}()

	h.registry.Register(sess.Token, ws)
	defer h.registry.Unregister(sess.Token, ws)

	slog.Info("chat websocket connected", "username", sess.Username, "ip", r.RemoteAddr)

	ctx := r.Context()
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			var closeErr websocket.CloseError
			if errors.As(err, &closeErr) || ctx.Err() != nil {
				return
			}
			slog.Debug("chat websocket read failed", "error", err, "username", sess.Username)
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.writeReply(ws, r, wsReply{Type: "error", Error: "invalid message"})
			continue
		}
		if msg.Type != "message" {
			continue
		}

		sess.Touch()
		exchanged, err := h.orchestrator.SendMessage(ctx, sess, msg.Content)
		if err != nil {
			if errors.Is(err, ErrEmptyMessage) {
				h.writeReply(ws, r, wsReply{Type: "error", Error: "message is required"})
				continue
			}
			h.writeReply(ws, r, wsReply{Type: "error", Error: "failed to process message"})
			continue
		}

		h.writeReply(ws, r, wsReply{
			Type:      "reply",
			UserText:  exchanged.UserText,
			BotText:   exchanged.BotText,
			Timestamp: exchanged.Timestamp,
		})
	}
}

func (h *WebSocketHandler) writeReply(ws *websocket.Conn, r *http.Request, reply wsReply) {
	data, err := json.Marshal(reply)
	if err != nil {
		slog.Warn("failed to marshal websocket reply", "error", err)
		return
	}
	if err := ws.Write(r.Context(), websocket.MessageText, data); err != nil {
		slog.Debug("failed to write websocket reply", "error", err)
	}
}

// checkOrigin allows same-origin requests, the configured frontend origin,
// and anything in development.
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if h.allowedOrigin != "" && origin == h.allowedOrigin {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}
