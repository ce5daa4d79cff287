package handlers

import (
	"net/http"
	"strconv"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/telemed-portal/internal/backend"
	"github.com/wolfman30/telemed-portal/internal/compliance"
	"github.com/wolfman30/telemed-portal/internal/portal"
	"github.com/wolfman30/telemed-portal/internal/session"
)

// Account returns profile and settings.
// GET /api/account
func (h *Handler) Account(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	view, err := h.pages.Account.Load(r.Context(), api)
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdateProfile patches name, phone and date of birth.
// PATCH /api/account/profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	var form portal.ProfileForm
	if err := decodeJSON(r, &form); err != nil {
		jsonError(w, msgInvalidBody, http.StatusBadRequest)
		return
	}
	user, err := h.pages.Account.UpdateProfile(r.Context(), api, form)
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	h.sessions.SetUser(sess.ID, user)
	h.audited(r, h.audit.LogAccountChange(r.Context(), compliance.EventProfileUpdated, sess.User.ID, chimw.GetReqID(r.Context()), form.ChangedFields()))
	writeJSON(w, http.StatusOK, user)
}

// ChangePassword verifies the old password and sets a new one.
// POST /api/account/password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	var form portal.PasswordForm
	if err := decodeJSON(r, &form); err != nil {
		jsonError(w, msgInvalidBody, http.StatusBadRequest)
		return
	}
	if err := h.pages.Account.ChangePassword(r.Context(), api, form); err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	h.audited(r, h.audit.LogAccountChange(r.Context(), compliance.EventPasswordChanged, sess.User.ID, chimw.GetReqID(r.Context()), nil))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Passwort erfolgreich geändert"})
}

// UpdateSettings stores the notification settings.
// PUT /api/account/settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	var settings backend.Settings
	if err := decodeJSON(r, &settings); err != nil {
		jsonError(w, msgInvalidBody, http.StatusBadRequest)
		return
	}
	saved, err := h.pages.Account.UpdateSettings(r.Context(), api, settings)
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// Activity lists the patient's audit trail.
// GET /api/account/activity?limit=&offset=
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	limit, offset := 50, 0
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	events, err := h.audit.QueryEvents(r.Context(), compliance.Filter{UserID: sess.User.ID, Limit: limit, Offset: offset})
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
