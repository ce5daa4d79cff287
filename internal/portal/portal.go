// Package portal turns backend data into the view models of each portal page.
// Every page depends on a narrow slice of the backend client, passed per call
// so that the caller can bind it to the patient's token.
package portal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/telemed-portal/pkg/logging"
)

// Clock returns the current time.
type Clock func() time.Time

// Options are shared by all page services.
type Options struct {
	Clock    Clock
	Location *time.Location
	Logger   *logging.Logger
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Logger == nil {
		o.Logger = logging.Default()
	}
	return o
}

func (o Options) now() time.Time {
	return o.Clock().In(o.Location)
}

// DateRange is an inclusive range of calendar days. Zero bounds are open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// ParseDateRange parses yyyy-mm-dd bounds; empty strings leave a bound open.
func ParseDateRange(from, to string, loc *time.Location) (DateRange, error) {
	var r DateRange
	if strings.TrimSpace(from) != "" {
		t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(from), loc)
		if err != nil {
			return r, &ValidationError{Field: "from", Message: "Ungültiges Startdatum"}
		}
		r.From = t
	}
	if strings.TrimSpace(to) != "" {
		t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(to), loc)
		if err != nil {
			return r, &ValidationError{Field: "to", Message: "Ungültiges Enddatum"}
		}
		r.To = t
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return r, &ValidationError{Field: "to", Message: "Enddatum liegt vor dem Startdatum"}
	}
	return r, nil
}

// Contains reports whether t falls on a day within the range. Unknown
// timestamps only match an open range.
func (r DateRange) Contains(t time.Time, ok bool) bool {
	if r.From.IsZero() && r.To.IsZero() {
		return true
	}
	if !ok {
		return false
	}
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To.AddDate(0, 0, 1)) {
		return false
	}
	return true
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// parseTimestamp accepts the timestamp shapes the backend emits. Values
// without zone are read in loc.
func parseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), true
		}
	}
	return time.Time{}, false
}

// containsFold reports whether any of fields contains needle, ignoring case.
func containsFold(needle string, fields ...string) bool {
	needle = strings.ToLower(strings.TrimSpace(needle))
	if needle == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// ErrNotFound reports a record id that the patient's data does not contain.
var ErrNotFound = errors.New("portal: not found")

// ValidationError is a form error shown next to a field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// UserError wraps a failed backend action with the message shown to the patient.
type UserError struct {
	Message string
	Err     error
}

func (e *UserError) Error() string { return fmt.Sprintf("portal: %s: %v", e.Message, e.Err) }
func (e *UserError) Unwrap() error { return e.Err }
