package prefs

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Reminder is a patient's reminder schedule for one medication.
type Reminder struct {
	MedicationID int64     `json:"medication_id"`
	Enabled      bool      `json:"enabled"`
	Times        []string  `json:"times"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Normalize validates the HH:MM times, then sorts and de-duplicates them.
func (r *Reminder) Normalize() error {
	if r.MedicationID <= 0 {
		return fmt.Errorf("prefs: invalid medication id %d", r.MedicationID)
	}
	times := make([]string, 0, len(r.Times))
	for _, raw := range r.Times {
		ts := strings.TrimSpace(raw)
		parsed, err := time.Parse("15:04", ts)
		if err != nil {
			return fmt.Errorf("prefs: invalid reminder time %q", raw)
		}
		times = append(times, parsed.Format("15:04"))
	}
	slices.Sort(times)
	r.Times = slices.Compact(times)
	return nil
}

// Store persists portal-side preferences that the backend does not know about.
type Store interface {
	Bookmarks(ctx context.Context, userID int64) ([]int64, error)
	ToggleBookmark(ctx context.Context, userID, tipID int64) (bool, error)
	Reminders(ctx context.Context, userID int64) ([]Reminder, error)
	SaveReminder(ctx context.Context, userID int64, r Reminder) (Reminder, error)
	DeleteReminder(ctx context.Context, userID, medicationID int64) error
}
