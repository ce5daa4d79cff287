package handlers

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/telemed-portal/internal/compliance"
	"github.com/wolfman30/telemed-portal/internal/export"
	"github.com/wolfman30/telemed-portal/internal/portal"
	"github.com/wolfman30/telemed-portal/internal/prefs"
	"github.com/wolfman30/telemed-portal/internal/session"
)

func (h *Handler) dateRange(r *http.Request) (portal.DateRange, error) {
	q := r.URL.Query()
	return portal.ParseDateRange(q.Get("from"), q.Get("to"), h.location)
}

// Prescriptions lists prescriptions with reminder state.
// GET /api/prescriptions?q=&from=&to=
func (h *Handler) Prescriptions(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	rng, err := h.dateRange(r)
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	view, err := h.pages.Prescriptions.Load(r.Context(), sess.ID, sess.User.ID, api, portal.PrescriptionQuery{
		Text:  r.URL.Query().Get("q"),
		Range: rng,
	})
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// SetReminder stores the reminder schedule of a medication.
// PUT /api/prescriptions/reminders/{medicationID} {enabled, times}
func (h *Handler) SetReminder(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	medID, ok := idParam(r, "medicationID")
	if !ok {
		jsonError(w, msgInvalidID, http.StatusBadRequest)
		return
	}
	var req struct {
		Enabled bool     `json:"enabled"`
		Times   []string `json:"times"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, msgInvalidBody, http.StatusBadRequest)
		return
	}
	saved, err := h.pages.Prescriptions.SetReminder(r.Context(), sess.User.ID, prefs.Reminder{
		MedicationID: medID,
		Enabled:      req.Enabled,
		Times:        req.Times,
	})
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// ClearReminder removes the reminder of a medication.
// DELETE /api/prescriptions/reminders/{medicationID}
func (h *Handler) ClearReminder(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	medID, ok := idParam(r, "medicationID")
	if !ok {
		jsonError(w, msgInvalidID, http.StatusBadRequest)
		return
	}
	if err := h.pages.Prescriptions.ClearReminder(r.Context(), sess.User.ID, medID); err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) reportQuery(r *http.Request) (portal.ReportQuery, error) {
	rng, err := h.dateRange(r)
	if err != nil {
		return portal.ReportQuery{}, err
	}
	cat, err := portal.ParseReportCategory(r.URL.Query().Get("category"))
	if err != nil {
		return portal.ReportQuery{}, err
	}
	return portal.ReportQuery{Category: cat, Text: r.URL.Query().Get("q"), Range: rng}, nil
}

// Reports lists doctor reports.
// GET /api/reports?category=&q=&from=&to=
func (h *Handler) Reports(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	q, err := h.reportQuery(r)
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	view, err := h.pages.Reports.Load(r.Context(), sess.ID, api, q)
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ExportReports renders the filtered reports.
// GET /api/reports/export?format=csv|json|xlsx&category=&q=&from=&to=
func (h *Handler) ExportReports(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	q, err := h.reportQuery(r)
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.fail(w, r, sess.ID, &portal.ValidationError{Field: "format", Message: "Unbekanntes Exportformat"})
		return
	}
	f, err := h.pages.Reports.Export(r.Context(), api, q, format)
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	h.audited(r, h.audit.LogExport(r.Context(), compliance.EventReportsExported, sess.User.ID, chimw.GetReqID(r.Context()), string(format), f.Filename))
	writeExport(w, f)
}

// DownloadReport passes the report PDF through.
// GET /api/reports/{id}/download
func (h *Handler) DownloadReport(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, msgInvalidID, http.StatusBadRequest)
		return
	}
	dl, err := h.pages.Reports.Download(r.Context(), api, id)
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	h.audited(r, h.audit.LogDownload(r.Context(), compliance.EventReportDownloaded, sess.User.ID, id, chimw.GetReqID(r.Context()), dl.Filename))
	writeDownload(w, dl)
}

func (h *Handler) labQuery(r *http.Request) (portal.LabQuery, error) {
	rng, err := h.dateRange(r)
	if err != nil {
		return portal.LabQuery{}, err
	}
	class, err := portal.ParseClassification(r.URL.Query().Get("classification"))
	if err != nil {
		return portal.LabQuery{}, err
	}
	return portal.LabQuery{Text: r.URL.Query().Get("q"), Range: rng, Classification: class}, nil
}

// LabResults lists classified lab results.
// GET /api/lab-results?classification=&q=&from=&to=
func (h *Handler) LabResults(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	q, err := h.labQuery(r)
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	view, err := h.pages.LabResults.Load(r.Context(), sess.ID, api, q)
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ExportLabResults renders the filtered lab results.
// GET /api/lab-results/export?format=csv|json|xlsx
func (h *Handler) ExportLabResults(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	q, err := h.labQuery(r)
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.fail(w, r, sess.ID, &portal.ValidationError{Field: "format", Message: "Unbekanntes Exportformat"})
		return
	}
	f, err := h.pages.LabResults.Export(r.Context(), api, q, format)
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	h.audited(r, h.audit.LogExport(r.Context(), compliance.EventLabResultsExported, sess.User.ID, chimw.GetReqID(r.Context()), string(format), f.Filename))
	writeExport(w, f)
}

// DownloadLabResult passes the lab result PDF through.
// GET /api/lab-results/{id}/download
func (h *Handler) DownloadLabResult(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, msgInvalidID, http.StatusBadRequest)
		return
	}
	dl, err := h.pages.LabResults.Download(r.Context(), api, id)
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	h.audited(r, h.audit.LogDownload(r.Context(), compliance.EventLabResultDownloaded, sess.User.ID, id, chimw.GetReqID(r.Context()), dl.Filename))
	writeDownload(w, dl)
}

// HealthTips lists health tips with bookmark state.
// GET /api/health-tips?category=&q=&bookmarked=true
func (h *Handler) HealthTips(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	q := r.URL.Query()
	view, err := h.pages.HealthTips.Load(r.Context(), sess.ID, sess.User.ID, api, portal.TipQuery{
		Category:       q.Get("category"),
		Text:           q.Get("q"),
		BookmarkedOnly: queryBool(r, "bookmarked"),
	})
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ToggleBookmark flips the bookmark of a tip.
// POST /api/health-tips/{id}/bookmark
func (h *Handler) ToggleBookmark(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, msgInvalidID, http.StatusBadRequest)
		return
	}
	on, err := h.pages.HealthTips.ToggleBookmark(r.Context(), sess.User.ID, id)
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "bookmarked": on})
}

// FAQ lists questions of a tab.
// GET /api/faq?tab=&q=
func (h *Handler) FAQ(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	view, err := h.pages.FAQ.Load(r.Context(), api, r.URL.Query().Get("tab"), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
