package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Login exchanges credentials for an access token (OAuth2 password flow).
// The email is sent as the "username" form field.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	var out TokenResponse
	fields := map[string]string{"username": email, "password": password}
	if err := c.sendForm(ctx, "/auth/login", fields, &out); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &out, nil
}

// Register creates a patient account. It does not log in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	if err := c.sendJSON(ctx, http.MethodPost, "/auth/register", req, nil); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// Me returns the user bound to the client's token.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.getJSON(ctx, "/auth/me", &out); err != nil {
		return nil, fmt.Errorf("me: %w", err)
	}
	return &out, nil
}

// UpdateMe patches the profile and returns the updated user.
func (c *Client) UpdateMe(ctx context.Context, update ProfileUpdate) (*User, error) {
	var out User
	if err := c.sendJSON(ctx, http.MethodPatch, "/users/me", update, &out); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &out, nil
}

// ChangePassword uses the auth router's password endpoint.
func (c *Client) ChangePassword(ctx context.Context, req PasswordChange) error {
	if err := c.sendJSON(ctx, http.MethodPost, "/auth/change-password", req, nil); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}

// ChangeUserPassword uses the users router's password endpoint.
func (c *Client) ChangeUserPassword(ctx context.Context, req PasswordChange) error {
	if err := c.sendJSON(ctx, http.MethodPut, "/users/me/password", req, nil); err != nil {
		return fmt.Errorf("change user password: %w", err)
	}
	return nil
}

// GetSettings returns the account settings.
func (c *Client) GetSettings(ctx context.Context) (*Settings, error) {
	var out Settings
	if err := c.getJSON(ctx, "/users/me/settings", &out); err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &out, nil
}

// UpdateSettings replaces the account settings.
func (c *Client) UpdateSettings(ctx context.Context, s Settings) (*Settings, error) {
	var out Settings
	if err := c.sendJSON(ctx, http.MethodPut, "/users/me/settings", s, &out); err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	return &out, nil
}

// ListAppointments returns the patient's appointments. upcoming narrows the
// list server-side when non-nil.
func (c *Client) ListAppointments(ctx context.Context, upcoming *bool) ([]Appointment, error) {
	path := "/appointments"
	if upcoming != nil {
		path += "?upcoming=" + strconv.FormatBool(*upcoming)
	}
	items, err := getList[Appointment](ctx, c, path)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return items, nil
}

// GetAppointment returns one appointment.
func (c *Client) GetAppointment(ctx context.Context, id int64) (*Appointment, error) {
	var out Appointment
	if err := c.getJSON(ctx, appointmentPath(id), &out); err != nil {
		return nil, fmt.Errorf("get appointment %d: %w", id, err)
	}
	return &out, nil
}

// CreateAppointment books a new appointment.
func (c *Client) CreateAppointment(ctx context.Context, req AppointmentRequest) (*Appointment, error) {
	var out Appointment
	if err := c.sendJSON(ctx, http.MethodPost, "/appointments", req, &out); err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	return &out, nil
}

// RescheduleAppointment replaces an appointment's slot and type.
func (c *Client) RescheduleAppointment(ctx context.Context, id int64, req AppointmentRequest) (*Appointment, error) {
	var out Appointment
	if err := c.sendJSON(ctx, http.MethodPut, appointmentPath(id), req, &out); err != nil {
		return nil, fmt.Errorf("reschedule appointment %d: %w", id, err)
	}
	return &out, nil
}

// CancelAppointment sets the appointment status to CANCELLED.
func (c *Client) CancelAppointment(ctx context.Context, id int64) error {
	body := map[string]AppointmentStatus{"status": StatusCancelled}
	if err := c.sendJSON(ctx, http.MethodPatch, appointmentPath(id), body, nil); err != nil {
		return fmt.Errorf("cancel appointment %d: %w", id, err)
	}
	return nil
}

// ListDoctors searches doctors; empty filter fields are omitted.
func (c *Client) ListDoctors(ctx context.Context, f DoctorFilter) ([]Doctor, error) {
	q := url.Values{}
	if v := strings.TrimSpace(f.Name); v != "" {
		q.Set("name", v)
	}
	if v := strings.TrimSpace(f.Specialization); v != "" {
		q.Set("specialization", v)
	}
	if v := strings.TrimSpace(f.City); v != "" {
		q.Set("city", v)
	}
	path := "/doctors"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	items, err := getList[Doctor](ctx, c, path)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return items, nil
}

// ListPrescriptions returns the patient's prescriptions.
func (c *Client) ListPrescriptions(ctx context.Context) ([]Prescription, error) {
	items, err := getList[Prescription](ctx, c, "/prescriptions")
	if err != nil {
		return nil, fmt.Errorf("list prescriptions: %w", err)
	}
	return items, nil
}

// ListReports returns the patient's reports.
func (c *Client) ListReports(ctx context.Context) ([]Report, error) {
	items, err := getList[Report](ctx, c, "/reports")
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return items, nil
}

// DownloadReport fetches the PDF rendition of a report.
func (c *Client) DownloadReport(ctx context.Context, id int64) (*Download, error) {
	d, err := c.download(ctx, fmt.Sprintf("/reports/%d/download", id), fmt.Sprintf("report_%d.pdf", id))
	if err != nil {
		return nil, fmt.Errorf("download report %d: %w", id, err)
	}
	return d, nil
}

// ListLabResults returns the patient's lab results.
func (c *Client) ListLabResults(ctx context.Context) ([]LabResult, error) {
	items, err := getList[LabResult](ctx, c, "/lab-results")
	if err != nil {
		return nil, fmt.Errorf("list lab results: %w", err)
	}
	return items, nil
}

// DownloadLabResult fetches the PDF rendition of a lab result.
func (c *Client) DownloadLabResult(ctx context.Context, id int64) (*Download, error) {
	d, err := c.download(ctx, fmt.Sprintf("/lab-results/%d/download", id), fmt.Sprintf("lab_result_%d.pdf", id))
	if err != nil {
		return nil, fmt.Errorf("download lab result %d: %w", id, err)
	}
	return d, nil
}

// ListHealthTips returns health tips, narrowed to category when set.
func (c *Client) ListHealthTips(ctx context.Context, category string) ([]HealthTip, error) {
	path := "/content/health-tips"
	if category = strings.TrimSpace(category); category != "" {
		path += "?category=" + url.QueryEscape(category)
	}
	items, err := getList[HealthTip](ctx, c, path)
	if err != nil {
		return nil, fmt.Errorf("list health tips: %w", err)
	}
	return items, nil
}

// ListFAQ returns all FAQ entries.
func (c *Client) ListFAQ(ctx context.Context) ([]FAQ, error) {
	items, err := getList[FAQ](ctx, c, "/content/faq")
	if err != nil {
		return nil, fmt.Errorf("list faq: %w", err)
	}
	return items, nil
}

// ListNotifications returns the patient's notifications, newest first.
func (c *Client) ListNotifications(ctx context.Context) ([]Notification, error) {
	items, err := getList[Notification](ctx, c, "/notifications")
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return items, nil
}

// UnreadCount returns the number of unread notifications.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var out UnreadCount
	if err := c.getJSON(ctx, "/notifications/unread-count", &out); err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return out.Count, nil
}

// MarkNotificationRead marks one notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id int64) error {
	if err := c.sendJSON(ctx, http.MethodPost, fmt.Sprintf("/notifications/%d/read", id), nil, nil); err != nil {
		return fmt.Errorf("mark notification %d read: %w", id, err)
	}
	return nil
}

// MarkAllRead marks every notification as read.
func (c *Client) MarkAllRead(ctx context.Context) error {
	if err := c.sendJSON(ctx, http.MethodPost, "/notifications/read-all", nil, nil); err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

// Search runs the global search across doctors, health tips and FAQs.
func (c *Client) Search(ctx context.Context, query string) (*SearchResults, error) {
	var out SearchResults
	if err := c.getJSON(ctx, "/search/?q="+url.QueryEscape(query), &out); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return &out, nil
}

// CheckSymptoms posts the wizard answers to the symptom checker.
func (c *Client) CheckSymptoms(ctx context.Context, req SymptomCheckRequest) (*SymptomCheckResult, error) {
	var out SymptomCheckResult
	if err := c.sendJSON(ctx, http.MethodPost, "/symptom-checker", req, &out); err != nil {
		return nil, fmt.Errorf("symptom check: %w", err)
	}
	return &out, nil
}

func appointmentPath(id int64) string {
	return fmt.Sprintf("/appointments/%d", id)
}
