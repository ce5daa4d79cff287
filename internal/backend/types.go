package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// validator is implemented by every response schema decoded at the client boundary.
type validator interface {
	Validate() error
}

// User is the authenticated account as returned by /auth/me.
type User struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Phone       string `json:"phone,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

func (u User) Validate() error {
	if u.ID == 0 {
		return errors.New("user: missing id")
	}
	if strings.TrimSpace(u.Email) == "" {
		return errors.New("user: missing email")
	}
	return nil
}

// TokenResponse is the OAuth2 password-flow login response.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (t TokenResponse) Validate() error {
	if strings.TrimSpace(t.AccessToken) == "" {
		return errors.New("token: missing access_token")
	}
	return nil
}

// RegisterRequest creates a patient account.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	Phone       string `json:"phone,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
}

// ProfileUpdate carries the mutable profile fields; nil fields are left untouched.
type ProfileUpdate struct {
	Name        *string `json:"name,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	DateOfBirth *string `json:"date_of_birth,omitempty"`
}

// PasswordChange is the body of both password endpoints.
type PasswordChange struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// Settings are the account preferences stored by the backend.
type Settings struct {
	EmailNotifications   bool   `json:"email_notifications"`
	SMSNotifications     bool   `json:"sms_notifications"`
	AppointmentReminders bool   `json:"appointment_reminders"`
	Language             string `json:"language,omitempty"`
}

func (Settings) Validate() error { return nil }

// AppointmentStatus is normalized to upper case on decode.
type AppointmentStatus string

const (
	StatusConfirmed AppointmentStatus = "CONFIRMED"
	StatusPending   AppointmentStatus = "PENDING"
	StatusCompleted AppointmentStatus = "COMPLETED"
	StatusCancelled AppointmentStatus = "CANCELLED"
)

func (s *AppointmentStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v := AppointmentStatus(strings.ToUpper(strings.TrimSpace(raw)))
	// Older backends report freshly requested appointments as REQUESTED.
	if v == "REQUESTED" {
		v = StatusPending
	}
	*s = v
	return nil
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusConfirmed, StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// ConsultationType is the channel of an appointment.
type ConsultationType string

const (
	TypeVideo ConsultationType = "VIDEO"
	TypePhone ConsultationType = "PHONE"
	TypeChat  ConsultationType = "CHAT"
)

// ConsultationTypes lists the bookable channels in display order.
var ConsultationTypes = []ConsultationType{TypeVideo, TypePhone, TypeChat}

func (t *ConsultationType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = ConsultationType(strings.ToUpper(strings.TrimSpace(raw)))
	return nil
}

func (t ConsultationType) Valid() bool {
	switch t {
	case TypeVideo, TypePhone, TypeChat:
		return true
	}
	return false
}

// Appointment is a booked consultation.
type Appointment struct {
	ID                   int64             `json:"id"`
	DoctorID             int64             `json:"doctor_id"`
	DoctorName           string            `json:"doctor_name"`
	DoctorSpecialization string            `json:"doctor_specialization,omitempty"`
	Date                 string            `json:"date"`
	Time                 string            `json:"time"`
	Type                 ConsultationType  `json:"type"`
	Status               AppointmentStatus `json:"status"`
	Notes                string            `json:"notes,omitempty"`
	VideoURL             string            `json:"video_url,omitempty"`
}

func (a Appointment) Validate() error {
	if a.ID == 0 {
		return errors.New("appointment: missing id")
	}
	if !a.Status.Valid() {
		return fmt.Errorf("appointment %d: unknown status %q", a.ID, a.Status)
	}
	if !a.Type.Valid() {
		return fmt.Errorf("appointment %d: unknown type %q", a.ID, a.Type)
	}
	if strings.TrimSpace(a.Date) == "" {
		return fmt.Errorf("appointment %d: missing date", a.ID)
	}
	return nil
}

// AppointmentRequest is the body used to book or reschedule.
type AppointmentRequest struct {
	DoctorID   int64             `json:"doctor_id"`
	DoctorName string            `json:"doctor_name"`
	Date       string            `json:"date"`
	Time       string            `json:"time"`
	Type       ConsultationType  `json:"type"`
	Notes      string            `json:"notes"`
	Status     AppointmentStatus `json:"status"`
}

// Doctor is a searchable practitioner. Optional numeric fields are nil when absent.
type Doctor struct {
	ID                int64    `json:"id"`
	Name              string   `json:"name"`
	Specialization    string   `json:"specialization"`
	City              string   `json:"city"`
	Description       string   `json:"description,omitempty"`
	Rating            *float64 `json:"rating,omitempty"`
	YearsOfExperience *int     `json:"years_of_experience,omitempty"`
	TotalPatients     *int     `json:"total_patients,omitempty"`
	ClinicAddress     string   `json:"clinic_address,omitempty"`
	Email             string   `json:"email,omitempty"`
	Phone             string   `json:"phone,omitempty"`
}

func (d Doctor) Validate() error {
	if d.ID == 0 {
		return errors.New("doctor: missing id")
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("doctor %d: missing name", d.ID)
	}
	return nil
}

// DoctorFilter narrows /doctors server-side.
type DoctorFilter struct {
	Name           string
	Specialization string
	City           string
}

// Medication is a prescribed drug.
type Medication struct {
	ID                   int64  `json:"id"`
	Name                 string `json:"name"`
	Dosage               string `json:"dosage"`
	FrequencyDescription string `json:"frequency_description,omitempty"`
	StartDate            string `json:"start_date,omitempty"`
	EndDate              string `json:"end_date,omitempty"`
	Notes                string `json:"notes,omitempty"`
}

// Prescription groups medications issued by a doctor.
type Prescription struct {
	ID          int64        `json:"id"`
	DoctorName  string       `json:"doctor_name"`
	CreatedAt   string       `json:"created_at"`
	Description string       `json:"description,omitempty"`
	Medications []Medication `json:"medications"`
}

func (p Prescription) Validate() error {
	if p.ID == 0 {
		return errors.New("prescription: missing id")
	}
	for _, m := range p.Medications {
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("prescription %d: medication %d without name", p.ID, m.ID)
		}
	}
	return nil
}

// LabResult is a single laboratory measurement.
type LabResult struct {
	ID          int64  `json:"id"`
	TestName    string `json:"test_name"`
	Date        string `json:"date"`
	ResultValue string `json:"result_value"`
	Unit        string `json:"unit,omitempty"`
	NormalRange string `json:"normal_range,omitempty"`
	Status      string `json:"status,omitempty"`
	DoctorName  string `json:"doctor_name,omitempty"`
}

func (l LabResult) Validate() error {
	if l.ID == 0 {
		return errors.New("lab result: missing id")
	}
	if strings.TrimSpace(l.TestName) == "" {
		return fmt.Errorf("lab result %d: missing test_name", l.ID)
	}
	return nil
}

// ReportCategory groups doctor reports.
type ReportCategory string

const (
	CategoryLab          ReportCategory = "lab"
	CategoryConsultation ReportCategory = "consultation"
	CategoryImaging      ReportCategory = "imaging"
)

func (c *ReportCategory) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = ReportCategory(strings.ToLower(strings.TrimSpace(raw)))
	return nil
}

// Report is a medical report written by a doctor.
type Report struct {
	ID         int64          `json:"id"`
	Title      string         `json:"title"`
	DoctorName string         `json:"doctor_name"`
	CreatedAt  string         `json:"created_at"`
	Content    string         `json:"content"`
	Category   ReportCategory `json:"category,omitempty"`
	Status     string         `json:"status,omitempty"`
}

func (r Report) Validate() error {
	if r.ID == 0 {
		return errors.New("report: missing id")
	}
	switch r.Category {
	case "", CategoryLab, CategoryConsultation, CategoryImaging:
		return nil
	}
	return fmt.Errorf("report %d: unknown category %q", r.ID, r.Category)
}

// HealthTip is editorial health content.
type HealthTip struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Category  string `json:"category"`
	CreatedAt string `json:"created_at,omitempty"`
}

func (h HealthTip) Validate() error {
	if h.ID == 0 {
		return errors.New("health tip: missing id")
	}
	return nil
}

// FAQ is a frequently asked question.
type FAQ struct {
	ID        int64  `json:"id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Category  string `json:"category,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

func (f FAQ) Validate() error {
	if f.ID == 0 {
		return errors.New("faq: missing id")
	}
	if strings.TrimSpace(f.Question) == "" {
		return fmt.Errorf("faq %d: missing question", f.ID)
	}
	return nil
}

// NotificationType drives the icon of a notification.
type NotificationType string

const (
	NotificationAppointment  NotificationType = "APPOINTMENT"
	NotificationPrescription NotificationType = "PRESCRIPTION"
	NotificationLabResult    NotificationType = "LAB_RESULT"
	NotificationSystem       NotificationType = "SYSTEM"
)

func (t *NotificationType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = NotificationType(strings.ToUpper(strings.TrimSpace(raw)))
	return nil
}

// Notification is an in-app message for the patient.
type Notification struct {
	ID        int64            `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	IsRead    bool             `json:"is_read"`
	Link      string           `json:"link,omitempty"`
	CreatedAt string           `json:"created_at"`
}

func (n Notification) Validate() error {
	if n.ID == 0 {
		return errors.New("notification: missing id")
	}
	return nil
}

// UnreadCount is the response of /notifications/unread-count.
type UnreadCount struct {
	Count int `json:"count"`
}

func (u UnreadCount) Validate() error {
	if u.Count < 0 {
		return fmt.Errorf("unread count: negative value %d", u.Count)
	}
	return nil
}

// SearchResults groups global search hits.
type SearchResults struct {
	Doctors    []Doctor    `json:"doctors"`
	HealthTips []HealthTip `json:"health_tips"`
	FAQs       []FAQ       `json:"faqs"`
}

func (s SearchResults) Validate() error {
	for _, d := range s.Doctors {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	for _, h := range s.HealthTips {
		if err := h.Validate(); err != nil {
			return err
		}
	}
	for _, f := range s.FAQs {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Empty reports whether no group has a hit.
func (s SearchResults) Empty() bool {
	return len(s.Doctors) == 0 && len(s.HealthTips) == 0 && len(s.FAQs) == 0
}

// SymptomCheckRequest is posted to the symptom checker.
type SymptomCheckRequest struct {
	SymptomsCategory string `json:"symptoms_category"`
	Severity         string `json:"severity"`
	Duration         string `json:"duration"`
}

// SymptomCheckResult is displayed verbatim.
type SymptomCheckResult struct {
	ResultMessage string `json:"result_message"`
	Disclaimer    string `json:"disclaimer"`
}

func (s SymptomCheckResult) Validate() error {
	if strings.TrimSpace(s.ResultMessage) == "" {
		return errors.New("symptom check: missing result_message")
	}
	return nil
}

// Download is a binary attachment fetched from the backend.
type Download struct {
	Filename    string
	ContentType string
	Body        []byte
}
