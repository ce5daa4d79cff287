package portal

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/telemed-portal/internal/backend"
)

// DashboardCard is a shortcut tile on the dashboard.
type DashboardCard struct {
	Title       string `json:"title"`
	Path        string `json:"path"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// DashboardCards are the fixed shortcut tiles.
var DashboardCards = []DashboardCard{
	{Title: "Termine & Ärzte", Path: "/doctors", Description: "Arzt finden und Termin buchen", Icon: "calendar_today"},
	{Title: "Rezepte & Medikamente", Path: "/prescriptions", Description: "Ihre Rezepte und Medikamente verwalten", Icon: "local_hospital"},
	{Title: "Arztberichte", Path: "/reports", Description: "Ihre medizinischen Berichte einsehen", Icon: "description"},
	{Title: "Laborergebnisse", Path: "/lab-results", Description: "Ihre Laborwerte einsehen", Icon: "science"},
	{Title: "Gesundheitstipps", Path: "/health-tips", Description: "Tipps für ein gesundes Leben", Icon: "fitness_center"},
	{Title: "Symptom-Checker", Path: "/symptom-checker", Description: "Erste Einschätzung Ihrer Symptome", Icon: "help"},
}

// DashboardAPI is the backend surface of the dashboard.
type DashboardAPI interface {
	ListAppointments(ctx context.Context, upcoming *bool) ([]backend.Appointment, error)
	UnreadCount(ctx context.Context) (int, error)
}

// DashboardView is the landing page.
type DashboardView struct {
	User          *backend.User    `json:"user,omitempty"`
	Cards         []DashboardCard  `json:"cards"`
	UpcomingCount int              `json:"upcoming_count"`
	Next          *AppointmentCard `json:"next_appointment,omitempty"`
	Countdown     string           `json:"countdown,omitempty"`
	Unread        int              `json:"unread_notifications"`
}

// Dashboard serves the landing page.
type Dashboard struct {
	opts Options
}

func NewDashboard(opts Options) *Dashboard {
	return &Dashboard{opts: opts.withDefaults()}
}

// Load fetches upcoming appointments and the unread count concurrently. A
// failing fetch leaves its fields empty; only a 401 fails the page.
func (d *Dashboard) Load(ctx context.Context, user *backend.User, api DashboardAPI) (*DashboardView, error) {
	view := &DashboardView{User: user, Cards: DashboardCards}

	var (
		appointments []backend.Appointment
		aptErr       error
		unread       int
		unreadErr    error
	)
	upcoming := true
	// Only a 401 aborts the group; other failures degrade their own fields.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appointments, aptErr = api.ListAppointments(gctx, &upcoming)
		return unauthorizedOnly(aptErr)
	})
	g.Go(func() error {
		unread, unreadErr = api.UnreadCount(gctx)
		return unauthorizedOnly(unreadErr)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if aptErr != nil {
		d.opts.Logger.Warn("dashboard: failed to load appointments", "error", aptErr)
	} else {
		part := PartitionAppointments(appointments, d.opts.now(), d.opts.Location)
		view.UpcomingCount = len(part.Upcoming)
		view.Next = part.Next
		view.Countdown = part.Countdown
	}
	if unreadErr != nil {
		d.opts.Logger.Warn("dashboard: failed to load unread count", "error", unreadErr)
	} else {
		view.Unread = unread
	}
	return view, nil
}

func unauthorizedOnly(err error) error {
	if errors.Is(err, backend.ErrUnauthorized) {
		return err
	}
	return nil
}
