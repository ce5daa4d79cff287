// Package handlers exposes the portal pages and widgets as JSON endpoints.
package handlers

import (
	"context"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/telemed-portal/internal/backend"
	"github.com/wolfman30/telemed-portal/internal/compliance"
	"github.com/wolfman30/telemed-portal/internal/http/middleware"
	"github.com/wolfman30/telemed-portal/internal/portal"
	"github.com/wolfman30/telemed-portal/internal/session"
	"github.com/wolfman30/telemed-portal/internal/theme"
	"github.com/wolfman30/telemed-portal/pkg/logging"
)

// BackendAPI is a token-bound backend client as seen by the page services.
type BackendAPI interface {
	portal.LayoutAPI
	portal.DashboardAPI
	portal.AppointmentsAPI
	portal.BookingAPI
	portal.DoctorsAPI
	portal.PrescriptionsAPI
	portal.ReportsAPI
	portal.LabResultsAPI
	portal.HealthTipsAPI
	portal.FAQAPI
	portal.SymptomsAPI
	portal.AccountAPI
	portal.SearchAPI
	portal.NotificationsAPI
}

// Sessions is the auth lifecycle used by the handlers.
type Sessions interface {
	Login(ctx context.Context, sessionID, email, password string) (session.Session, error)
	Register(ctx context.Context, sessionID string, req backend.RegisterRequest) (session.Session, error)
	Logout(ctx context.Context, sessionID string) error
	Discard(ctx context.Context, sessionID string) error
	SetUser(sessionID string, user *backend.User)
}

// Notifier is poked when the unread count may have changed.
type Notifier interface {
	Refresh(sessionID string)
}

// Config wires the portal handler.
type Config struct {
	Pages    *portal.Pages
	API      func(token string) BackendAPI
	Sessions Sessions
	Themes   theme.Cookie
	Notifier Notifier
	Audit    *compliance.AuditService
	Location *time.Location
	Logger   *logging.Logger
}

// Handler serves every portal endpoint.
type Handler struct {
	pages    *portal.Pages
	api      func(token string) BackendAPI
	sessions Sessions
	themes   theme.Cookie
	notifier Notifier
	audit    *compliance.AuditService
	location *time.Location
	logger   *logging.Logger
}

func New(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Handler{
		pages:    cfg.Pages,
		api:      cfg.API,
		sessions: cfg.Sessions,
		themes:   cfg.Themes,
		notifier: cfg.Notifier,
		audit:    cfg.Audit,
		location: cfg.Location,
		logger:   cfg.Logger,
	}
}

// authedFunc is a handler that runs with the signed-in session and a client
// bound to its token.
type authedFunc func(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI)

// authed resolves the session attached by the route guard.
func (h *Handler) authed(fn authedFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := middleware.CurrentSession(r.Context())
		if !ok || !sess.Authenticated() {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": msgSessionExpired, "redirect": "/login"})
			return
		}
		fn(w, r, sess, h.api(sess.Token))
	}
}

// fail writes err as JSON. A backend 401 ends the session so the next
// navigation lands on the login page.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, sessionID string, err error) {
	status, body := errorStatus(err)
	switch {
	case status == http.StatusUnauthorized:
		h.logger.Info("backend rejected token, ending session", "session_id", sessionID, "path", r.URL.Path)
		h.endSession(w, r, sessionID)
	case status >= http.StatusInternalServerError:
		h.logger.Error("request failed", "session_id", sessionID, "path", r.URL.Path, "status", status, "error", err)
	default:
		h.logger.Debug("request rejected", "session_id", sessionID, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, body)
}

// endSession clears the token, the theme and every piece of per-session state.
func (h *Handler) endSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	if err := h.sessions.Logout(r.Context(), sessionID); err != nil {
		h.logger.Warn("failed to clear session token", "session_id", sessionID, "error", err)
	}
	h.themes.Reset(w)
	h.pages.Forget(sessionID)
}

// rotateSession moves the browser to the session id minted at sign-in and
// drops whatever the previous id held.
func (h *Handler) rotateSession(w http.ResponseWriter, r *http.Request, oldID, newID string) {
	middleware.SetSessionCookie(w, r, newID)
	if oldID == "" || oldID == newID {
		return
	}
	if err := h.sessions.Discard(r.Context(), oldID); err != nil {
		h.logger.Warn("failed to discard previous session", "session_id", oldID, "error", err)
	}
	h.pages.Forget(oldID)
}

// discardFailedLogin drops a token a half-finished login may have stored.
func (h *Handler) discardFailedLogin(ctx context.Context, sessionID string) {
	if err := h.sessions.Discard(ctx, sessionID); err != nil {
		h.logger.Warn("failed to discard unused session", "session_id", sessionID, "error", err)
	}
}

func (h *Handler) refreshUnread(sessionID string) {
	if h.notifier != nil {
		h.notifier.Refresh(sessionID)
	}
}

// audited reports an audit failure without failing the request.
func (h *Handler) audited(r *http.Request, err error) {
	if err != nil {
		h.logger.Warn("audit event not recorded", "path", r.URL.Path, "request_id", chimw.GetReqID(r.Context()), "error", err)
	}
}
