package handlers

import (
	"net/http"
	"strings"

	"github.com/wolfman30/telemed-portal/internal/backend"
	"github.com/wolfman30/telemed-portal/internal/portal"
	"github.com/wolfman30/telemed-portal/internal/session"
)

// Dashboard returns the landing page.
// GET /api/dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	view, err := h.pages.Dashboard.Load(r.Context(), sess.User, api)
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Doctors searches doctors.
// GET /api/doctors?name=&specialization=&city=&q=&sort=name|rating|experience
func (h *Handler) Doctors(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	q := r.URL.Query()
	view, err := h.pages.Doctors.Search(r.Context(), sess.ID, api, portal.DoctorQuery{
		Filter: backend.DoctorFilter{
			Name:           strings.TrimSpace(q.Get("name")),
			Specialization: strings.TrimSpace(q.Get("specialization")),
			City:           strings.TrimSpace(q.Get("city")),
		},
		Text: q.Get("q"),
		Sort: portal.ParseDoctorSort(q.Get("sort")),
	})
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Appointments returns the partitioned appointment list.
// GET /api/appointments
func (h *Handler) Appointments(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	view, err := h.pages.Appointments.Load(r.Context(), api)
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Appointment returns one appointment card.
// GET /api/appointments/{id}
func (h *Handler) Appointment(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, msgInvalidID, http.StatusBadRequest)
		return
	}
	card, err := h.pages.Appointments.Detail(r.Context(), api, id)
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// CancelAppointment cancels and returns the refreshed list.
// POST /api/appointments/{id}/cancel
func (h *Handler) CancelAppointment(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, msgInvalidID, http.StatusBadRequest)
		return
	}
	view, err := h.pages.Appointments.Cancel(r.Context(), api, id)
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	h.refreshUnread(sess.ID)
	writeJSON(w, http.StatusOK, view)
}

// BookingOptions returns the dialog choices.
// GET /api/booking/options
func (h *Handler) BookingOptions(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	writeJSON(w, http.StatusOK, h.pages.Booking.Options())
}

// BookingStep reports whether the dialog may advance.
// POST /api/booking/step {step, form}
func (h *Handler) BookingStep(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	var req struct {
		Step int                `json:"step"`
		Form portal.BookingForm `json:"form"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, msgInvalidBody, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"can_proceed": h.pages.Booking.CanProceed(req.Step, req.Form)})
}

// BookAppointment books a new appointment.
// POST /api/appointments
func (h *Handler) BookAppointment(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	var form portal.BookingForm
	if err := decodeJSON(r, &form); err != nil {
		jsonError(w, msgInvalidBody, http.StatusBadRequest)
		return
	}
	form.AppointmentID = 0
	h.submitBooking(w, r, sess, api, form, http.StatusCreated)
}

// RescheduleAppointment moves an existing appointment.
// PUT /api/appointments/{id}
func (h *Handler) RescheduleAppointment(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, msgInvalidID, http.StatusBadRequest)
		return
	}
	var form portal.BookingForm
	if err := decodeJSON(r, &form); err != nil {
		jsonError(w, msgInvalidBody, http.StatusBadRequest)
		return
	}
	form.AppointmentID = id
	h.submitBooking(w, r, sess, api, form, http.StatusOK)
}

func (h *Handler) submitBooking(w http.ResponseWriter, r *http.Request, sess session.Session, api BackendAPI, form portal.BookingForm, status int) {
	apt, err := h.pages.Booking.Submit(r.Context(), api, form)
	if err != nil {
		h.fail(w, r, sess.ID, err)
		return
	}
	h.refreshUnread(sess.ID)
	writeJSON(w, status, apt)
}
