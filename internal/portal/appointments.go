package portal

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/wolfman30/telemed-portal/internal/backend"
)

// AppointmentsAPI is the backend surface of the appointments page.
type AppointmentsAPI interface {
	ListAppointments(ctx context.Context, upcoming *bool) ([]backend.Appointment, error)
	GetAppointment(ctx context.Context, id int64) (*backend.Appointment, error)
	CancelAppointment(ctx context.Context, id int64) error
}

var statusLabels = map[backend.AppointmentStatus]string{
	backend.StatusConfirmed: "Bestätigt",
	backend.StatusPending:   "Ausstehend",
	backend.StatusCompleted: "Abgeschlossen",
	backend.StatusCancelled: "Abgesagt",
}

var statusColors = map[backend.AppointmentStatus]string{
	backend.StatusConfirmed: "#10b981",
	backend.StatusPending:   "#f59e0b",
	backend.StatusCompleted: "#667eea",
	backend.StatusCancelled: "#ef4444",
}

var typeLabels = map[backend.ConsultationType]string{
	backend.TypeVideo: "Video",
	backend.TypePhone: "Telefon",
	backend.TypeChat:  "Chat",
}

var typeIcons = map[backend.ConsultationType]string{
	backend.TypeVideo: "video_call",
	backend.TypePhone: "phone",
	backend.TypeChat:  "chat",
}

// StatusLabel returns the German label of an appointment status.
func StatusLabel(s backend.AppointmentStatus) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// StatusColor returns the accent colour of an appointment status.
func StatusColor(s backend.AppointmentStatus) string {
	if c, ok := statusColors[s]; ok {
		return c
	}
	return "#64748b"
}

// TypeLabel returns the German label of a consultation type.
func TypeLabel(t backend.ConsultationType) string {
	if l, ok := typeLabels[t]; ok {
		return l
	}
	return string(t)
}

func typeIcon(t backend.ConsultationType) string {
	if i, ok := typeIcons[t]; ok {
		return i
	}
	return "video_call"
}

// AppointmentCard is an appointment decorated for display.
type AppointmentCard struct {
	backend.Appointment
	Start         *time.Time `json:"start,omitempty"`
	StatusLabel   string     `json:"status_label"`
	StatusColor   string     `json:"status_color"`
	TypeLabel     string     `json:"type_label"`
	TypeIcon      string     `json:"type_icon"`
	CanJoin       bool       `json:"can_join"`
	CanCancel     bool       `json:"can_cancel"`
	CanReschedule bool       `json:"can_reschedule"`
}

// AppointmentsView partitions the patient's appointments into the three tabs.
type AppointmentsView struct {
	Upcoming  []AppointmentCard `json:"upcoming"`
	Past      []AppointmentCard `json:"past"`
	Cancelled []AppointmentCard `json:"cancelled"`
	Next      *AppointmentCard  `json:"next,omitempty"`
	Countdown string            `json:"countdown,omitempty"`
}

// Appointments serves the appointments page.
type Appointments struct {
	opts Options
}

func NewAppointments(opts Options) *Appointments {
	return &Appointments{opts: opts.withDefaults()}
}

// Load fetches all appointments and partitions them.
func (a *Appointments) Load(ctx context.Context, api AppointmentsAPI) (*AppointmentsView, error) {
	list, err := api.ListAppointments(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("portal: load appointments: %w", err)
	}
	return PartitionAppointments(list, a.opts.now(), a.opts.Location), nil
}

// Detail fetches one appointment decorated like its card in the list.
func (a *Appointments) Detail(ctx context.Context, api AppointmentsAPI, id int64) (*AppointmentCard, error) {
	if id <= 0 {
		return nil, &ValidationError{Field: "id", Message: "Ungültiger Termin"}
	}
	apt, err := api.GetAppointment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("portal: appointment %d: %w", id, err)
	}
	card := decorateAppointment(*apt, a.opts.now(), a.opts.Location)
	return &card, nil
}

// Cancel marks the appointment cancelled and re-fetches the list.
func (a *Appointments) Cancel(ctx context.Context, api AppointmentsAPI, id int64) (*AppointmentsView, error) {
	if id <= 0 {
		return nil, &ValidationError{Field: "id", Message: "Ungültiger Termin"}
	}
	if err := api.CancelAppointment(ctx, id); err != nil {
		return nil, fmt.Errorf("portal: cancel appointment %d: %w", id, err)
	}
	a.opts.Logger.Info("appointment cancelled", "appointment_id", id)
	return a.Load(ctx, api)
}

// AppointmentStart combines date and time of an appointment in loc.
func AppointmentStart(apt backend.Appointment, loc *time.Location) (time.Time, bool) {
	day, ok := parseTimestamp(apt.Date, loc)
	if !ok {
		return time.Time{}, false
	}
	clock := strings.TrimSpace(apt.Time)
	if clock == "" {
		return day, true
	}
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, clock); err == nil {
			return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), true
		}
	}
	return day, true
}

// PartitionAppointments splits appointments into upcoming (future and not
// cancelled, soonest first), past (already started, latest first) and
// cancelled.
func PartitionAppointments(list []backend.Appointment, now time.Time, loc *time.Location) *AppointmentsView {
	view := &AppointmentsView{
		Upcoming:  []AppointmentCard{},
		Past:      []AppointmentCard{},
		Cancelled: []AppointmentCard{},
	}
	for _, apt := range list {
		card := decorateAppointment(apt, now, loc)
		switch {
		case apt.Status == backend.StatusCancelled:
			view.Cancelled = append(view.Cancelled, card)
		case card.Start != nil && card.Start.After(now):
			view.Upcoming = append(view.Upcoming, card)
		default:
			view.Past = append(view.Past, card)
		}
	}

	slices.SortStableFunc(view.Upcoming, func(a, b AppointmentCard) int {
		return a.Start.Compare(*b.Start)
	})
	slices.SortStableFunc(view.Past, func(a, b AppointmentCard) int {
		return compareStartDesc(a.Start, b.Start)
	})
	slices.SortStableFunc(view.Cancelled, func(a, b AppointmentCard) int {
		return compareStartDesc(a.Start, b.Start)
	})

	if len(view.Upcoming) > 0 {
		next := view.Upcoming[0]
		view.Next = &next
		view.Countdown = FormatCountdown(next.Start.Sub(now))
	}
	return view
}

// decorateAppointment adds labels and the actions still open to the patient.
// Completed or cancelled appointments and those already started offer none.
func decorateAppointment(apt backend.Appointment, now time.Time, loc *time.Location) AppointmentCard {
	card := AppointmentCard{
		Appointment: apt,
		StatusLabel: StatusLabel(apt.Status),
		StatusColor: StatusColor(apt.Status),
		TypeLabel:   TypeLabel(apt.Type),
		TypeIcon:    typeIcon(apt.Type),
	}
	start, ok := AppointmentStart(apt, loc)
	if !ok {
		return card
	}
	card.Start = &start
	if !start.After(now) || apt.Status == backend.StatusCancelled || apt.Status == backend.StatusCompleted {
		return card
	}
	card.CanCancel = true
	card.CanReschedule = true
	card.CanJoin = apt.Type == backend.TypeVideo && apt.VideoURL != "" && apt.Status == backend.StatusConfirmed
	return card
}

func compareStartDesc(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return b.Compare(*a)
}

// FormatCountdown renders the time until the next appointment in German.
func FormatCountdown(d time.Duration) string {
	if d <= 0 {
		return "Jetzt"
	}
	if d < time.Minute {
		return "in weniger als einer Minute"
	}
	days := int(d / (24 * time.Hour))
	hours := int(d%(24*time.Hour)) / int(time.Hour)
	minutes := int(d%time.Hour) / int(time.Minute)

	switch {
	case days > 0:
		return fmt.Sprintf("in %d %s, %d Std.", days, plural(days, "Tag", "Tagen"), hours)
	case hours > 0:
		return fmt.Sprintf("in %d Std. %d Min.", hours, minutes)
	}
	return fmt.Sprintf("in %d Min.", minutes)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
