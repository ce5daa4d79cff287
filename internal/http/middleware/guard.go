package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/wolfman30/telemed-portal/internal/session"
	"github.com/wolfman30/telemed-portal/pkg/logging"
)

const currentSessionKey contextKey = "currentSession"

// SessionResolver resolves the auth state of a browser session.
type SessionResolver interface {
	Current(ctx context.Context, sessionID string) (session.Session, error)
}

// GuardConfig lists the paths that bypass or invert the guard.
type GuardConfig struct {
	Sessions SessionResolver
	// Public paths (or path prefixes ending in "/") are served regardless of auth state.
	Public []string
	// GuestOnly paths render only for unauthenticated sessions.
	GuestOnly []string
	LoginPath string
	HomePath  string
	Logger    *logging.Logger
}

// RouteGuard resolves the session once per request and enforces the portal
// routing rules: guests only reach guest-only and public paths, signed-in
// patients never see guest-only paths. Guarded API and websocket calls get
// 401 instead of a redirect.
func RouteGuard(cfg GuardConfig) func(http.Handler) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if cfg.HomePath == "" {
		cfg.HomePath = "/"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if matchPath(cfg.Public, path) {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := cfg.Sessions.Current(r.Context(), SessionID(r.Context()))
			if err != nil {
				cfg.Logger.Error("route guard: session lookup failed", "path", path, "error", err)
				writeGuardError(w, http.StatusServiceUnavailable, "Sitzung derzeit nicht verfügbar", "")
				return
			}

			guestOnly := matchPath(cfg.GuestOnly, path)
			switch {
			case sess.Authenticated() && guestOnly:
				http.Redirect(w, r, cfg.HomePath, http.StatusFound)
				return
			case !sess.Authenticated() && !guestOnly:
				if isAPIPath(path) {
					writeGuardError(w, http.StatusUnauthorized, "Nicht angemeldet", cfg.LoginPath)
					return
				}
				http.Redirect(w, r, cfg.LoginPath, http.StatusFound)
				return
			}

			ctx := context.WithValue(r.Context(), currentSessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CurrentSession returns the session resolved by RouteGuard.
func CurrentSession(ctx context.Context) (session.Session, bool) {
	sess, ok := ctx.Value(currentSessionKey).(session.Session)
	return sess, ok
}

func matchPath(patterns []string, path string) bool {
	for _, p := range patterns {
		if strings.HasSuffix(p, "/") {
			if strings.HasPrefix(path, p) {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}
	return false
}

func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/ws/")
}

func writeGuardError(w http.ResponseWriter, status int, msg, redirect string) {
	body := map[string]string{"error": msg}
	if redirect != "" {
		body["redirect"] = redirect
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
