package handlers

import (
	"net/http"

	"github.com/wolfman30/telemed-portal/internal/session"
)

// Search runs the debounced global search.
// GET /api/search?q=
func (h *Handler) Search(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	view, err := h.pages.Search.Search(r.Context(), sess.ID, api, r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Notifications returns the notification menu.
// GET /api/notifications
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	view, err := h.pages.Notifications.Load(r.Context(), api)
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// OpenNotification marks a notification read and returns its link.
// POST /api/notifications/{id}/open
func (h *Handler) OpenNotification(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, msgInvalidID, http.StatusBadRequest)
		return
	}
	link, err := h.pages.Notifications.Open(r.Context(), api, id)
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	h.refreshUnread(sess.ID)
	writeJSON(w, http.StatusOK, map[string]string{"link": link})
}

// MarkAllNotificationsRead clears the badge.
// POST /api/notifications/read-all
func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	view, err := h.pages.Notifications.MarkAllRead(r.Context(), api)
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	h.refreshUnread(sess.ID)
	writeJSON(w, http.StatusOK, view)
}
