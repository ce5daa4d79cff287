package portal

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/wolfman30/telemed-portal/internal/backend"
	"github.com/wolfman30/telemed-portal/internal/resource"
)

// Fallbacks for doctor fields the backend may omit.
const (
	DefaultDoctorRating     = 4.8
	DefaultDoctorExperience = 10
	DefaultDoctorPatients   = 500
)

// DoctorSort orders the doctor list.
type DoctorSort string

const (
	SortByName       DoctorSort = "name"
	SortByRating     DoctorSort = "rating"
	SortByExperience DoctorSort = "experience"
)

// ParseDoctorSort accepts name, rating or experience. Anything else keeps the
// backend order.
func ParseDoctorSort(s string) DoctorSort {
	switch DoctorSort(strings.ToLower(strings.TrimSpace(s))) {
	case SortByName:
		return SortByName
	case SortByRating:
		return SortByRating
	case SortByExperience:
		return SortByExperience
	}
	return ""
}

// DoctorsAPI is the backend surface of the doctor search.
type DoctorsAPI interface {
	ListDoctors(ctx context.Context, f backend.DoctorFilter) ([]backend.Doctor, error)
}

// DoctorQuery combines the server filters with the client-side text filter and sort.
type DoctorQuery struct {
	Filter backend.DoctorFilter
	Text   string
	Sort   DoctorSort
}

// DoctorCard is a doctor with defaults applied.
type DoctorCard struct {
	backend.Doctor
	Rating            float64 `json:"rating"`
	YearsOfExperience int     `json:"years_of_experience"`
	TotalPatients     int     `json:"total_patients"`
}

// DoctorSearchView is the doctor search page.
type DoctorSearchView struct {
	Status  resource.Status `json:"status"`
	Doctors []DoctorCard    `json:"doctors"`
	Total   int             `json:"total"`
	Sort    DoctorSort      `json:"sort,omitempty"`
}

// DoctorSearch serves the doctor search page. A new search of a session
// cancels its previous in-flight search.
type DoctorSearch struct {
	opts     Options
	searches *resource.Set[[]backend.Doctor]
}

func NewDoctorSearch(opts Options) *DoctorSearch {
	return &DoctorSearch{
		opts:     opts.withDefaults(),
		searches: resource.NewSet[[]backend.Doctor](),
	}
}

func (d *DoctorSearch) Search(ctx context.Context, sessionID string, api DoctorsAPI, q DoctorQuery) (*DoctorSearchView, error) {
	snap := d.searches.Get(sessionID).Reload(ctx, func(ctx context.Context) ([]backend.Doctor, error) {
		return api.ListDoctors(ctx, q.Filter)
	})
	if snap.Status == resource.StatusFailed {
		return nil, fmt.Errorf("portal: search doctors: %w", snap.Err)
	}
	cards := FilterDoctors(snap.Data, q.Text, q.Sort)
	return &DoctorSearchView{Status: snap.Status, Doctors: cards, Total: len(snap.Data), Sort: q.Sort}, nil
}

// Forget drops the session's search state.
func (d *DoctorSearch) Forget(sessionID string) {
	d.searches.Forget(sessionID)
}

// FilterDoctors applies defaults, the case-insensitive text filter on name,
// specialization and city, and a stable sort.
func FilterDoctors(doctors []backend.Doctor, text string, sortBy DoctorSort) []DoctorCard {
	cards := make([]DoctorCard, 0, len(doctors))
	for _, doc := range doctors {
		if !containsFold(text, doc.Name, doc.Specialization, doc.City) {
			continue
		}
		cards = append(cards, newDoctorCard(doc))
	}

	switch sortBy {
	case SortByName:
		slices.SortStableFunc(cards, func(a, b DoctorCard) int {
			return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		})
	case SortByRating:
		slices.SortStableFunc(cards, func(a, b DoctorCard) int {
			return cmp.Compare(b.Rating, a.Rating)
		})
	case SortByExperience:
		slices.SortStableFunc(cards, func(a, b DoctorCard) int {
			return cmp.Compare(b.YearsOfExperience, a.YearsOfExperience)
		})
	}
	return cards
}

func newDoctorCard(doc backend.Doctor) DoctorCard {
	card := DoctorCard{
		Doctor:            doc,
		Rating:            DefaultDoctorRating,
		YearsOfExperience: DefaultDoctorExperience,
		TotalPatients:     DefaultDoctorPatients,
	}
	if doc.Rating != nil {
		card.Rating = *doc.Rating
	}
	if doc.YearsOfExperience != nil {
		card.YearsOfExperience = *doc.YearsOfExperience
	}
	if doc.TotalPatients != nil {
		card.TotalPatients = *doc.TotalPatients
	}
	return card
}
