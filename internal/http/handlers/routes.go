package handlers

import (
	"github.com/go-chi/chi/v5"
)

// APIRoutes returns the JSON API, mounted under /api.
func (h *Handler) APIRoutes() chi.Router {
	r := chi.NewRouter()
	r.NotFound(h.NotFound)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/register", h.Register)
		r.Get("/me", h.Me)
	})
	r.Route("/theme", func(r chi.Router) {
		r.Get("/", h.Theme)
		r.Put("/", h.SetTheme)
		r.Post("/toggle", h.ToggleTheme)
	})
	r.Get("/layout", h.Layout)

	r.Get("/dashboard", h.authed(h.Dashboard))
	r.Get("/doctors", h.authed(h.Doctors))

	r.Route("/appointments", func(r chi.Router) {
		r.Get("/", h.authed(h.Appointments))
		r.Post("/", h.authed(h.BookAppointment))
		r.Get("/{id}", h.authed(h.Appointment))
		r.Put("/{id}", h.authed(h.RescheduleAppointment))
		r.Post("/{id}/cancel", h.authed(h.CancelAppointment))
	})
	r.Route("/booking", func(r chi.Router) {
		r.Get("/options", h.authed(h.BookingOptions))
		r.Post("/step", h.authed(h.BookingStep))
	})

	r.Route("/prescriptions", func(r chi.Router) {
		r.Get("/", h.authed(h.Prescriptions))
		r.Put("/reminders/{medicationID}", h.authed(h.SetReminder))
		r.Delete("/reminders/{medicationID}", h.authed(h.ClearReminder))
	})
	r.Route("/reports", func(r chi.Router) {
		r.Get("/", h.authed(h.Reports))
		r.Get("/export", h.authed(h.ExportReports))
		r.Get("/{id}/download", h.authed(h.DownloadReport))
	})
	r.Route("/lab-results", func(r chi.Router) {
		r.Get("/", h.authed(h.LabResults))
		r.Get("/export", h.authed(h.ExportLabResults))
		r.Get("/{id}/download", h.authed(h.DownloadLabResult))
	})
	r.Route("/health-tips", func(r chi.Router) {
		r.Get("/", h.authed(h.HealthTips))
		r.Post("/{id}/bookmark", h.authed(h.ToggleBookmark))
	})
	r.Get("/faq", h.authed(h.FAQ))

	r.Route("/symptoms", func(r chi.Router) {
		r.Get("/", h.authed(h.SymptomState))
		r.Post("/describe", h.authed(h.DescribeSymptoms))
		r.Post("/analyze", h.authed(h.AnalyzeSymptoms))
		r.Post("/back", h.authed(h.SymptomsBack))
		r.Post("/reset", h.authed(h.ResetSymptoms))
		r.Get("/history", h.authed(h.SymptomHistory))
		r.Delete("/history", h.authed(h.ClearSymptomHistory))
	})

	r.Route("/account", func(r chi.Router) {
		r.Get("/", h.authed(h.Account))
		r.Patch("/profile", h.authed(h.UpdateProfile))
		r.Post("/password", h.authed(h.ChangePassword))
		r.Put("/settings", h.authed(h.UpdateSettings))
		r.Get("/activity", h.authed(h.Activity))
	})

	r.Get("/search", h.authed(h.Search))
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.authed(h.Notifications))
		r.Post("/read-all", h.authed(h.MarkAllNotificationsRead))
		r.Post("/{id}/open", h.authed(h.OpenNotification))
	})
	return r
}
