package portal

import (
	"time"

	"github.com/wolfman30/telemed-portal/internal/prefs"
	"github.com/wolfman30/telemed-portal/internal/symptoms"
)

// Deps wires the page services.
type Deps struct {
	Options
	Prefs           prefs.Store
	History         symptoms.HistoryStore
	SymptomObserver SymptomObserver
	SearchDebounce  time.Duration
	SearchMinLength int
}

// Pages bundles every page and widget service of the portal.
type Pages struct {
	Layout        *Layout
	Dashboard     *Dashboard
	Doctors       *DoctorSearch
	Appointments  *Appointments
	Booking       *Booking
	Prescriptions *Prescriptions
	Reports       *Reports
	LabResults    *LabResults
	HealthTips    *HealthTips
	FAQ           *FAQ
	Symptoms      *SymptomChecker
	Account       *Account
	Search        *GlobalSearch
	Notifications *Notifications
}

func NewPages(deps Deps) *Pages {
	opts := deps.Options.withDefaults()
	return &Pages{
		Layout:        NewLayout(opts),
		Dashboard:     NewDashboard(opts),
		Doctors:       NewDoctorSearch(opts),
		Appointments:  NewAppointments(opts),
		Booking:       NewBooking(opts),
		Prescriptions: NewPrescriptions(deps.Prefs, opts),
		Reports:       NewReports(opts),
		LabResults:    NewLabResults(opts),
		HealthTips:    NewHealthTips(deps.Prefs, opts),
		FAQ:           NewFAQ(opts),
		Symptoms:      NewSymptomChecker(deps.History, deps.SymptomObserver, opts),
		Account:       NewAccount(opts),
		Search:        NewGlobalSearch(deps.SearchDebounce, deps.SearchMinLength, opts),
		Notifications: NewNotifications(opts),
	}
}

// Forget drops all per-session page state, cancelling in-flight loads.
func (p *Pages) Forget(sessionID string) {
	p.Doctors.Forget(sessionID)
	p.Prescriptions.Forget(sessionID)
	p.Reports.Forget(sessionID)
	p.LabResults.Forget(sessionID)
	p.HealthTips.Forget(sessionID)
	p.Symptoms.Forget(sessionID)
	p.Search.Forget(sessionID)
}
