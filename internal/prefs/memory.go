package prefs

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore is the fallback Store used when no database is configured.
// Preferences are lost on restart.
type MemoryStore struct {
	mu        sync.Mutex
	bookmarks map[int64][]int64
	reminders map[int64]map[int64]Reminder
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bookmarks: make(map[int64][]int64),
		reminders: make(map[int64]map[int64]Reminder),
		now:       time.Now,
	}
}

func (s *MemoryStore) Bookmarks(_ context.Context, userID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Most recent first, like the Postgres store.
	ids := slices.Clone(s.bookmarks[userID])
	slices.Reverse(ids)
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

func (s *MemoryStore) ToggleBookmark(_ context.Context, userID, tipID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.bookmarks[userID]
	if i := slices.Index(ids, tipID); i >= 0 {
		s.bookmarks[userID] = slices.Delete(ids, i, i+1)
		return false, nil
	}
	s.bookmarks[userID] = append(ids, tipID)
	return true, nil
}

func (s *MemoryStore) Reminders(_ context.Context, userID int64) ([]Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Reminder, 0, len(s.reminders[userID]))
	for _, r := range s.reminders[userID] {
		r.Times = slices.Clone(r.Times)
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b Reminder) int {
		return cmp.Compare(a.MedicationID, b.MedicationID)
	})
	return out, nil
}

func (s *MemoryStore) SaveReminder(_ context.Context, userID int64, r Reminder) (Reminder, error) {
	if err := r.Normalize(); err != nil {
		return Reminder{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r.UpdatedAt = s.now().UTC()
	if s.reminders[userID] == nil {
		s.reminders[userID] = make(map[int64]Reminder)
	}
	s.reminders[userID][r.MedicationID] = r
	return r, nil
}

func (s *MemoryStore) DeleteReminder(_ context.Context, userID, medicationID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reminders[userID], medicationID)
	return nil
}
