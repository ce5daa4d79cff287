package portal

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/wolfman30/telemed-portal/internal/backend"
)

// BookingFailed is the message shown for any failed booking submission.
const BookingFailed = "Fehler bei der Buchung. Bitte versuchen Sie es erneut."

// BookingSteps are the steps of the booking dialog.
var BookingSteps = []string{"Datum & Zeit", "Konsultationsart", "Bestätigung"}

// TimeSlots are the bookable start times of every day.
var TimeSlots = []string{
	"09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
	"14:00", "14:30", "15:00", "15:30", "16:00", "16:30",
}

const bookableDays = 7

var weekdayShort = [...]string{"So", "Mo", "Di", "Mi", "Do", "Fr", "Sa"}

// BookingAPI is the backend surface of the booking dialog.
type BookingAPI interface {
	CreateAppointment(ctx context.Context, req backend.AppointmentRequest) (*backend.Appointment, error)
	RescheduleAppointment(ctx context.Context, id int64, req backend.AppointmentRequest) (*backend.Appointment, error)
}

// BookingDate is one selectable day.
type BookingDate struct {
	Value   string `json:"value"`
	Weekday string `json:"weekday"`
	Day     string `json:"day"`
}

// TypeOption is one selectable consultation type.
type TypeOption struct {
	Value backend.ConsultationType `json:"value"`
	Label string                   `json:"label"`
	Icon  string                   `json:"icon"`
}

// BookingOptions is everything the dialog needs to render.
type BookingOptions struct {
	Steps       []string                 `json:"steps"`
	Dates       []BookingDate            `json:"dates"`
	TimeSlots   []string                 `json:"time_slots"`
	Types       []TypeOption             `json:"types"`
	DefaultType backend.ConsultationType `json:"default_type"`
}

// BookingForm is the submitted dialog state. AppointmentID is set when
// rescheduling.
type BookingForm struct {
	AppointmentID int64                    `json:"appointment_id,omitempty"`
	DoctorID      int64                    `json:"doctor_id"`
	DoctorName    string                   `json:"doctor_name"`
	Date          string                   `json:"date"`
	Time          string                   `json:"time"`
	Type          backend.ConsultationType `json:"type"`
	Notes         string                   `json:"notes"`
}

// Booking serves the booking dialog.
type Booking struct {
	opts Options
}

func NewBooking(opts Options) *Booking {
	return &Booking{opts: opts.withDefaults()}
}

// Options lists the next seven days starting tomorrow and the fixed slots.
func (b *Booking) Options() BookingOptions {
	today := b.opts.now()
	dates := make([]BookingDate, 0, bookableDays)
	for i := 1; i <= bookableDays; i++ {
		d := today.AddDate(0, 0, i)
		dates = append(dates, BookingDate{
			Value:   d.Format(time.DateOnly),
			Weekday: weekdayShort[d.Weekday()],
			Day:     d.Format("02"),
		})
	}
	types := make([]TypeOption, 0, len(backend.ConsultationTypes))
	for _, t := range backend.ConsultationTypes {
		types = append(types, TypeOption{Value: t, Label: TypeLabel(t), Icon: typeIcon(t)})
	}
	return BookingOptions{
		Steps:       BookingSteps,
		Dates:       dates,
		TimeSlots:   TimeSlots,
		Types:       types,
		DefaultType: backend.TypeVideo,
	}
}

// CanProceed reports whether the dialog may advance past step.
func (b *Booking) CanProceed(step int, form BookingForm) bool {
	switch step {
	case 0:
		return strings.TrimSpace(form.Date) != "" && strings.TrimSpace(form.Time) != ""
	case 1:
		return form.Type == "" || form.Type.Valid()
	case 2:
		return b.Validate(&form) == nil
	}
	return false
}

// Validate checks the form against the offered dates, slots and types and
// fills in the default consultation type.
func (b *Booking) Validate(form *BookingForm) error {
	if form.DoctorID <= 0 {
		return &ValidationError{Field: "doctor_id", Message: "Bitte wählen Sie einen Arzt"}
	}
	if strings.TrimSpace(form.Date) == "" || strings.TrimSpace(form.Time) == "" {
		return &ValidationError{Field: "date", Message: "Bitte wählen Sie Datum und Uhrzeit"}
	}
	opts := b.Options()
	if !slices.ContainsFunc(opts.Dates, func(d BookingDate) bool { return d.Value == form.Date }) {
		return &ValidationError{Field: "date", Message: "Das gewählte Datum ist nicht buchbar"}
	}
	if !slices.Contains(TimeSlots, form.Time) {
		return &ValidationError{Field: "time", Message: "Die gewählte Uhrzeit ist nicht buchbar"}
	}
	if form.Type == "" {
		form.Type = backend.TypeVideo
	}
	if !form.Type.Valid() {
		return &ValidationError{Field: "type", Message: "Unbekannte Konsultationsart"}
	}
	return nil
}

// Submit creates the appointment, or reschedules it when AppointmentID is set.
func (b *Booking) Submit(ctx context.Context, api BookingAPI, form BookingForm) (*backend.Appointment, error) {
	if err := b.Validate(&form); err != nil {
		return nil, err
	}
	req := backend.AppointmentRequest{
		DoctorID:   form.DoctorID,
		DoctorName: form.DoctorName,
		Date:       form.Date,
		Time:       form.Time,
		Type:       form.Type,
		Notes:      form.Notes,
		Status:     backend.StatusConfirmed,
	}

	var (
		apt *backend.Appointment
		err error
	)
	if form.AppointmentID > 0 {
		apt, err = api.RescheduleAppointment(ctx, form.AppointmentID, req)
	} else {
		apt, err = api.CreateAppointment(ctx, req)
	}
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			return nil, err
		}
		b.opts.Logger.Warn("booking failed", "doctor_id", form.DoctorID, "appointment_id", form.AppointmentID, "error", err)
		return nil, &UserError{Message: BookingFailed, Err: err}
	}
	b.opts.Logger.Info("appointment booked", "doctor_id", form.DoctorID, "appointment_id", apt.ID, "rescheduled", form.AppointmentID > 0)
	return apt, nil
}
