package portal

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/telemed-portal/internal/backend"
	"github.com/wolfman30/telemed-portal/internal/prefs"
	"github.com/wolfman30/telemed-portal/internal/resource"
)

// PrescriptionsAPI is the backend surface of the prescriptions page.
type PrescriptionsAPI interface {
	ListPrescriptions(ctx context.Context) ([]backend.Prescription, error)
}

// PrescriptionQuery filters the prescription list.
type PrescriptionQuery struct {
	Text  string
	Range DateRange
}

// MedicationView is a medication with its reminder state.
type MedicationView struct {
	backend.Medication
	Reminder *prefs.Reminder `json:"reminder,omitempty"`
}

// PrescriptionView is a prescription with decorated medications.
type PrescriptionView struct {
	backend.Prescription
	Medications []MedicationView `json:"medications"`
}

// PrescriptionsView is the prescriptions page.
type PrescriptionsView struct {
	Status        resource.Status    `json:"status"`
	Prescriptions []PrescriptionView `json:"prescriptions"`
	Total         int                `json:"total"`
	Reminders     int                `json:"active_reminders"`
}

// Prescriptions serves the prescriptions page and the medication reminders.
type Prescriptions struct {
	opts  Options
	prefs prefs.Store
	lists *resource.Set[[]backend.Prescription]
}

func NewPrescriptions(store prefs.Store, opts Options) *Prescriptions {
	if store == nil {
		store = prefs.NewMemoryStore()
	}
	return &Prescriptions{
		opts:  opts.withDefaults(),
		prefs: store,
		lists: resource.NewSet[[]backend.Prescription](),
	}
}

func (p *Prescriptions) Load(ctx context.Context, sessionID string, userID int64, api PrescriptionsAPI, q PrescriptionQuery) (*PrescriptionsView, error) {
	snap := p.lists.Get(sessionID).Reload(ctx, api.ListPrescriptions)
	if snap.Status == resource.StatusFailed {
		return nil, fmt.Errorf("portal: load prescriptions: %w", snap.Err)
	}

	reminders, err := p.prefs.Reminders(ctx, userID)
	if err != nil {
		// Reminders are decoration; the list is still useful without them.
		p.opts.Logger.Warn("failed to load medication reminders", "user_id", userID, "error", err)
	}
	byMedication := make(map[int64]prefs.Reminder, len(reminders))
	active := 0
	for _, r := range reminders {
		byMedication[r.MedicationID] = r
		if r.Enabled {
			active++
		}
	}

	view := &PrescriptionsView{
		Status:        snap.Status,
		Prescriptions: []PrescriptionView{},
		Total:         len(snap.Data),
		Reminders:     active,
	}
	for _, rx := range FilterPrescriptions(snap.Data, q, p.opts.Location) {
		pv := PrescriptionView{Prescription: rx, Medications: make([]MedicationView, 0, len(rx.Medications))}
		for _, med := range rx.Medications {
			mv := MedicationView{Medication: med}
			if r, ok := byMedication[med.ID]; ok {
				mv.Reminder = &r
			}
			pv.Medications = append(pv.Medications, mv)
		}
		view.Prescriptions = append(view.Prescriptions, pv)
	}
	return view, nil
}

// SetReminder stores the reminder schedule of one medication.
func (p *Prescriptions) SetReminder(ctx context.Context, userID int64, r prefs.Reminder) (prefs.Reminder, error) {
	if err := r.Normalize(); err != nil {
		return prefs.Reminder{}, &ValidationError{Field: "times", Message: "Ungültige Erinnerungszeit (HH:MM)"}
	}
	saved, err := p.prefs.SaveReminder(ctx, userID, r)
	if err != nil {
		return prefs.Reminder{}, err
	}
	p.opts.Logger.Info("medication reminder updated", "user_id", userID, "medication_id", r.MedicationID, "enabled", saved.Enabled)
	return saved, nil
}

// ClearReminder removes the reminder of one medication.
func (p *Prescriptions) ClearReminder(ctx context.Context, userID, medicationID int64) error {
	return p.prefs.DeleteReminder(ctx, userID, medicationID)
}

func (p *Prescriptions) Forget(sessionID string) {
	p.lists.Forget(sessionID)
}

// FilterPrescriptions keeps prescriptions whose doctor, description or any
// medication name matches the text and whose created_at is within range.
func FilterPrescriptions(list []backend.Prescription, q PrescriptionQuery, loc *time.Location) []backend.Prescription {
	out := make([]backend.Prescription, 0, len(list))
	for _, rx := range list {
		fields := []string{rx.DoctorName, rx.Description}
		for _, m := range rx.Medications {
			fields = append(fields, m.Name)
		}
		if !containsFold(q.Text, fields...) {
			continue
		}
		if !q.Range.Contains(parseTimestamp(rx.CreatedAt, loc)) {
			continue
		}
		out = append(out, rx)
	}
	return out
}
