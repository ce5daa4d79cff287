package handlers

import (
	"net/http"
	"strings"

	"github.com/wolfman30/telemed-portal/internal/http/middleware"
	"github.com/wolfman30/telemed-portal/internal/theme"
)

// Page renders the layout shell of a page path. The browser fetches the page
// data from the matching /api endpoint.
// GET /, /doctors, ..., /login, /register
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionID(r.Context())
	sess, _ := middleware.CurrentSession(r.Context())
	mode := h.themes.Mode(r)

	var api BackendAPI
	if sess.Authenticated() {
		api = h.api(sess.Token)
	}
	view, err := h.pages.Layout.Load(r.Context(), r.URL.Path, mode, sess.User, api)
	if err != nil {
		h.fail(w, r, sid, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Layout renders the shell for the path given in ?page=.
// GET /api/layout?page=/doctors
func (h *Handler) Layout(w http.ResponseWriter, r *http.Request) {
	page := strings.TrimSpace(r.URL.Query().Get("page"))
	if page == "" {
		page = "/"
	}
	r2 := r.Clone(r.Context())
	r2.URL.Path = page
	h.Page(w, r2)
}

// NotFound sends unknown pages home and unknown API calls a 404.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		jsonError(w, "Nicht gefunden", http.StatusNotFound)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

type themeResponse struct {
	Mode theme.Mode `json:"mode"`
}

// Theme returns the browser's colour mode.
// GET /api/theme
func (h *Handler) Theme(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, themeResponse{Mode: h.themes.Mode(r)})
}

// SetTheme stores the browser's colour mode.
// PUT /api/theme {mode}
func (h *Handler) SetTheme(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, msgInvalidBody, http.StatusBadRequest)
		return
	}
	mode, err := theme.ParseMode(req.Mode)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "Unbekanntes Farbschema", "field": "mode"})
		return
	}
	h.themes.Set(w, mode)
	writeJSON(w, http.StatusOK, themeResponse{Mode: mode})
}

// ToggleTheme flips the browser's colour mode.
// POST /api/theme/toggle
func (h *Handler) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, themeResponse{Mode: h.themes.Toggle(w, r)})
}

// Health reports liveness.
// GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
