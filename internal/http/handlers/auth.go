package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/wolfman30/telemed-portal/internal/backend"
	"github.com/wolfman30/telemed-portal/internal/http/middleware"
	"github.com/wolfman30/telemed-portal/internal/portal"
	"github.com/wolfman30/telemed-portal/internal/session"
)

// Login signs the browser in under a fresh session id.
// POST /api/auth/login {email, password}
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionID(r.Context())
	var form portal.LoginForm
	if err := decodeJSON(r, &form); err != nil {
		jsonError(w, msgInvalidBody, http.StatusBadRequest)
		return
	}
	if err := form.Validate(); err != nil {
		h.fail(w, r, sid, err)
		return
	}
	newSID := uuid.NewString()
	sess, err := h.sessions.Login(r.Context(), newSID, form.Email, form.Password)
	if err != nil {
		h.discardFailedLogin(r.Context(), newSID)
		h.authFailed(w, sid, err, session.LoginFailed)
		return
	}
	h.rotateSession(w, r, sid, newSID)
	writeJSON(w, http.StatusOK, sess)
}

// Register creates the account and signs the browser in under a fresh
// session id.
// POST /api/auth/register {email, password, name, phone, date_of_birth}
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionID(r.Context())
	var form portal.RegisterForm
	if err := decodeJSON(r, &form); err != nil {
		jsonError(w, msgInvalidBody, http.StatusBadRequest)
		return
	}
	if err := form.Validate(); err != nil {
		h.fail(w, r, sid, err)
		return
	}
	newSID := uuid.NewString()
	sess, err := h.sessions.Register(r.Context(), newSID, form.Request())
	if err != nil {
		h.discardFailedLogin(r.Context(), newSID)
		h.authFailed(w, sid, err, session.RegistrationFailed)
		return
	}
	h.rotateSession(w, r, sid, newSID)
	writeJSON(w, http.StatusCreated, sess)
}

// authFailed surfaces the backend detail, or the fallback message, without
// ending the session: a failed login leaves the guest a guest.
func (h *Handler) authFailed(w http.ResponseWriter, sid string, err error, fallback string) {
	status := http.StatusUnauthorized
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 500 {
		status = http.StatusBadGateway
	}
	h.logger.Info("authentication failed", "session_id", sid, "error", err)
	jsonError(w, backend.DetailOf(err, fallback), status)
}

// Me returns the current session.
// GET /api/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.CurrentSession(r.Context())
	writeJSON(w, http.StatusOK, sess)
}

// Logout clears the token and answers with a full navigation to /login.
// GET|POST /logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionID(r.Context())
	if sid != "" {
		h.endSession(w, r, sid)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
