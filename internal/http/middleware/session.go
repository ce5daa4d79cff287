package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	sessionIDKey     contextKey = "sessionID"
	sessionConfigKey contextKey = "sessionConfig"
)

type contextKey string

// SessionConfig controls the browser session cookie.
type SessionConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// SessionCookie makes sure every request carries a browser session id. A
// missing or malformed cookie is replaced by a fresh UUID.
func SessionCookie(cfg SessionConfig) func(http.Handler) http.Handler {
	if cfg.CookieName == "" {
		cfg.CookieName = "portal_sid"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := ""
			if c, err := r.Cookie(cfg.CookieName); err == nil {
				if id, err := uuid.Parse(c.Value); err == nil {
					sid = id.String()
				}
			}
			if sid == "" {
				sid = uuid.NewString()
				writeSessionCookie(w, cfg, sid)
			}
			ctx := context.WithValue(r.Context(), sessionConfigKey, cfg)
			next.ServeHTTP(w, r.WithContext(WithSessionID(ctx, sid)))
		})
	}
}

// SetSessionCookie points the browser at a new session id, e.g. after sign-in.
// The cookie attributes match the ones SessionCookie issues.
func SetSessionCookie(w http.ResponseWriter, r *http.Request, sid string) {
	cfg, _ := r.Context().Value(sessionConfigKey).(SessionConfig)
	if cfg.CookieName == "" {
		cfg.CookieName = "portal_sid"
	}
	writeSessionCookie(w, cfg, sid)
}

func writeSessionCookie(w http.ResponseWriter, cfg SessionConfig, sid string) {
	cookie := &http.Cookie{
		Name:     cfg.CookieName,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if cfg.TTL > 0 {
		cookie.MaxAge = int(cfg.TTL / time.Second)
	}
	http.SetCookie(w, cookie)
}

// WithSessionID stores the browser session id in ctx.
func WithSessionID(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sid)
}

// SessionID returns the browser session id, or "" outside SessionCookie.
func SessionID(ctx context.Context) string {
	sid, _ := ctx.Value(sessionIDKey).(string)
	return sid
}

// SessionIDFromRequest is SessionID for handlers that only see the request.
func SessionIDFromRequest(r *http.Request) string {
	return SessionID(r.Context())
}
