package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/avdeyev/botchat/internal/auth"
	"github.com/avdeyev/botchat/internal/domain"
	"github.com/avdeyev/botchat/internal/session"
	"github.com/go-chi/chi/v5"
)

// AuthHandler handles registration, login, logout, navigation, and profile
// endpoints.
type AuthHandler struct {
	*Handler
	sessionTTL time.Duration
}

// NewAuthHandler creates an auth handler. sessionTTL bounds the session
// cookie lifetime.
func NewAuthHandler(base *Handler, sessionTTL time.Duration) *AuthHandler {
	return &AuthHandler{Handler: base, sessionTTL: sessionTTL}
}

// RegisterRoutes registers auth and session routes.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})
	r.Get("/api/me", h.GetMe)
	r.Get("/api/view", h.Navigate)
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.auth.Register(r.Context(), req); err != nil {
		if errors.Is(err, auth.ErrMissingField) {
			Error(w, http.StatusBadRequest, "all fields are required")
			return
		}
		Error(w, http.StatusInternalServerError, "registration failed")
		return
	}

	JSON(w, http.StatusCreated, map[string]string{
		"status": "registered",
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login. Success sets the session cookie and
// lands the user on the chat view.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := h.sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		Error(w, http.StatusInternalServerError, "login failed")
		return
	}

	session.SetCookie(w, sess.Token, h.sessionTTL, h.isDevelopment())
	JSON(w, http.StatusOK, map[string]string{
		"username":    sess.Username,
		"active_view": string(sess.ActiveView()),
	})
}

// Logout handles POST /api/auth/logout. Logout is unconditional: the
// session and its transcript are discarded whether or not a session exists.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := session.TokenFromRequest(r); token != "" {
		h.sessions.Logout(token)
	}
	session.ClearCookie(w, h.isDevelopment())
	JSON(w, http.StatusOK, map[string]string{
		"status": "logged out",
	})
}

// GetMe handles GET /api/me: session plus profile summary.
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess == nil {
		Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	resp := map[string]interface{}{
		"username":    sess.Username,
		"active_view": string(sess.ActiveView()),
		"login_at":    sess.LoginAt,
	}
	// A missing profile is survivable: the store may be empty or unreadable.
	if cred := h.auth.Profile(r.Context(), sess.Username); cred != nil {
		resp["email"] = cred.Email
		resp["dob"] = cred.DateOfBirth
		resp["phone"] = cred.Phone
	}

	JSON(w, http.StatusOK, resp)
}

// Navigate handles GET /api/view?page=chat|profile. Unrecognized page
// values fall back to the chat view.
func (h *AuthHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess == nil {
		Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	view := domain.ParseView(r.URL.Query().Get("page"))
	sess.Navigate(view)

	JSON(w, http.StatusOK, map[string]string{
		"active_view": string(view),
	})
}
