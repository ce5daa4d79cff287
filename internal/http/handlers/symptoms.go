package handlers

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/telemed-portal/internal/session"
)

// SymptomState returns the wizard of the session.
// GET /api/symptoms
func (h *Handler) SymptomState(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	writeJSON(w, http.StatusOK, h.pages.Symptoms.State(sess.ID))
}

// DescribeSymptoms completes step one.
// POST /api/symptoms/describe {description, symptoms_category}
func (h *Handler) DescribeSymptoms(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	var req struct {
		Description string `json:"description"`
		Category    string `json:"symptoms_category"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, msgInvalidBody, http.StatusBadRequest)
		return
	}
	state, err := h.pages.Symptoms.Describe(sess.ID, req.Description, req.Category)
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// AnalyzeSymptoms completes step two and submits the check.
// POST /api/symptoms/analyze {severity, duration}
func (h *Handler) AnalyzeSymptoms(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	var req struct {
		Severity string `json:"severity"`
		Duration string `json:"duration"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, msgInvalidBody, http.StatusBadRequest)
		return
	}
	state, err := h.pages.Symptoms.Analyze(r.Context(), sess.ID, sess.User.ID, api, req.Severity, req.Duration)
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	if state.Result != nil && state.Result.Emergency {
		h.audited(r, h.audit.LogEmergency(r.Context(), sess.User.ID, chimw.GetReqID(r.Context()), string(state.Result.Severity)))
	}
	writeJSON(w, http.StatusOK, state)
}

// SymptomsBack returns to the previous step.
// POST /api/symptoms/back
func (h *Handler) SymptomsBack(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	writeJSON(w, http.StatusOK, h.pages.Symptoms.Back(sess.ID))
}

// ResetSymptoms starts a new check.
// POST /api/symptoms/reset
func (h *Handler) ResetSymptoms(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	writeJSON(w, http.StatusOK, h.pages.Symptoms.Reset(sess.ID))
}

// SymptomHistory lists the latest checks of the patient.
// GET /api/symptoms/history
func (h *Handler) SymptomHistory(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	entries, err := h.pages.Symptoms.History(r.Context(), sess.User.ID)
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}

// ClearSymptomHistory removes all stored checks.
// DELETE /api/symptoms/history
func (h *Handler) ClearSymptomHistory(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	if err := h.pages.Symptoms.ClearHistory(r.Context(), sess.User.ID); err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
