package session

import (
	"context"
	"net/http"
	"time"

	"github.com/avdeyev/botchat/internal/domain"
)

// CookieName is the session token cookie.
const CookieName = "botchat_session"

type contextKey int

const sessionKey contextKey = iota

// FromContext returns the session attached to the request, or nil when the
// request is anonymous.
func FromContext(ctx context.Context) *domain.Session {
	if sess, ok := ctx.Value(sessionKey).(*domain.Session); ok {
		return sess
	}
	return nil
}

// Middleware resolves the session cookie and injects the live session into
// the request context. Anonymous requests pass through with no session;
// individual handlers decide whether that is an error.
func Middleware(m *Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess := m.Get(token)
			if sess == nil {
				next.ServeHTTP(w, r)
				return
			}

			sess.Touch()
			ctx := context.WithValue(r.Context(), sessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenFromRequest extracts the session token from the request cookie.
// Returns "" for anonymous requests.
func TokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// SetCookie attaches the session token cookie to the response.
func SetCookie(w http.ResponseWriter, token string, ttl time.Duration, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

// ClearCookie removes the session token cookie.
func ClearCookie(w http.ResponseWriter, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}
