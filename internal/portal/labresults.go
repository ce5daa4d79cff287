package portal

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/telemed-portal/internal/backend"
	"github.com/wolfman30/telemed-portal/internal/export"
	"github.com/wolfman30/telemed-portal/internal/resource"
)

// Classification of a lab value against its normal range.
type Classification string

const (
	ClassNormal  Classification = "normal"
	ClassLow     Classification = "low"
	ClassHigh    Classification = "high"
	ClassUnknown Classification = "unknown"
)

var classLabels = map[Classification]string{
	ClassNormal:  "Normal",
	ClassLow:     "Niedrig",
	ClassHigh:    "Erhöht",
	ClassUnknown: "Unbekannt",
}

var classColors = map[Classification]string{
	ClassNormal:  "#10b981",
	ClassLow:     "#3b82f6",
	ClassHigh:    "#ef4444",
	ClassUnknown: "#64748b",
}

var numberPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

func parseNumbers(s string) []float64 {
	var out []float64
	for _, m := range numberPattern.FindAllString(s, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", "."), 64)
		if err == nil {
			out = append(out, v)
		}
	}
	return out
}

// Classify compares value against a normal range such as "70-100 mg/dL",
// "<200" or ">40". Values or ranges that do not parse are unknown.
func Classify(value, normalRange string) Classification {
	values := parseNumbers(value)
	if len(values) == 0 {
		return ClassUnknown
	}
	v := values[0]

	rng := strings.TrimSpace(normalRange)
	bounds := parseNumbers(rng)
	if len(bounds) == 0 {
		return ClassUnknown
	}

	switch {
	case strings.HasPrefix(rng, "<=") || strings.HasPrefix(rng, "≤"):
		if v > bounds[0] {
			return ClassHigh
		}
		return ClassNormal
	case strings.HasPrefix(rng, "<"):
		if v >= bounds[0] {
			return ClassHigh
		}
		return ClassNormal
	case strings.HasPrefix(rng, ">=") || strings.HasPrefix(rng, "≥"):
		if v < bounds[0] {
			return ClassLow
		}
		return ClassNormal
	case strings.HasPrefix(rng, ">"):
		if v <= bounds[0] {
			return ClassLow
		}
		return ClassNormal
	}

	if len(bounds) < 2 {
		return ClassUnknown
	}
	low, high := bounds[0], bounds[1]
	if low > high {
		low, high = high, low
	}
	switch {
	case v < low:
		return ClassLow
	case v > high:
		return ClassHigh
	}
	return ClassNormal
}

// ParseClassification accepts normal, low, high, unknown or empty (all).
func ParseClassification(s string) (Classification, error) {
	c := Classification(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case "", ClassNormal, ClassLow, ClassHigh, ClassUnknown:
		return c, nil
	case "all":
		return "", nil
	}
	return "", &ValidationError{Field: "classification", Message: "Unbekannte Einstufung"}
}

// classifyResult prefers the computed classification and falls back to the
// backend status when the values do not parse.
func classifyResult(r backend.LabResult) Classification {
	if c := Classify(r.ResultValue, r.NormalRange); c != ClassUnknown {
		return c
	}
	switch c := Classification(strings.ToLower(strings.TrimSpace(r.Status))); c {
	case ClassNormal, ClassLow, ClassHigh:
		return c
	}
	return ClassUnknown
}

// LabResultsAPI is the backend surface of the lab results page.
type LabResultsAPI interface {
	ListLabResults(ctx context.Context) ([]backend.LabResult, error)
	DownloadLabResult(ctx context.Context, id int64) (*backend.Download, error)
}

// LabQuery filters lab results.
type LabQuery struct {
	Text           string
	Range          DateRange
	Classification Classification
}

// LabResultCard is a lab result with its classification.
type LabResultCard struct {
	backend.LabResult
	Classification Classification `json:"classification"`
	Label          string         `json:"classification_label"`
	Color          string         `json:"classification_color"`
	Measured       *time.Time     `json:"measured,omitempty"`
}

// LabResultsView is the lab results page.
type LabResultsView struct {
	Status   resource.Status        `json:"status"`
	Results  []LabResultCard        `json:"results"`
	Total    int                    `json:"total"`
	Summary  map[Classification]int `json:"summary"`
	Abnormal int                    `json:"abnormal"`
}

// LabResults serves the lab results page.
type LabResults struct {
	opts  Options
	lists *resource.Set[[]backend.LabResult]
}

func NewLabResults(opts Options) *LabResults {
	return &LabResults{opts: opts.withDefaults(), lists: resource.NewSet[[]backend.LabResult]()}
}

func (l *LabResults) Load(ctx context.Context, sessionID string, api LabResultsAPI, q LabQuery) (*LabResultsView, error) {
	snap := l.lists.Get(sessionID).Reload(ctx, api.ListLabResults)
	if snap.Status == resource.StatusFailed {
		return nil, fmt.Errorf("portal: load lab results: %w", snap.Err)
	}
	cards := FilterLabResults(snap.Data, q, l.opts.Location)
	view := &LabResultsView{
		Status:  snap.Status,
		Results: cards,
		Total:   len(snap.Data),
		Summary: map[Classification]int{},
	}
	for _, c := range cards {
		view.Summary[c.Classification]++
		if c.Classification == ClassLow || c.Classification == ClassHigh {
			view.Abnormal++
		}
	}
	return view, nil
}

// Download passes the lab result PDF through.
func (l *LabResults) Download(ctx context.Context, api LabResultsAPI, id int64) (*backend.Download, error) {
	dl, err := api.DownloadLabResult(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("portal: download lab result %d: %w", id, err)
	}
	return dl, nil
}

// Export renders the filtered lab results in the requested format.
func (l *LabResults) Export(ctx context.Context, api LabResultsAPI, q LabQuery, format export.Format) (*export.File, error) {
	list, err := api.ListLabResults(ctx)
	if err != nil {
		return nil, fmt.Errorf("portal: export lab results: %w", err)
	}
	cards := FilterLabResults(list, q, l.opts.Location)
	rows := make([][]string, 0, len(cards))
	for _, c := range cards {
		rows = append(rows, []string{
			c.TestName,
			c.Date,
			strings.TrimSpace(c.ResultValue + " " + c.Unit),
			c.NormalRange,
			c.Label,
			c.DoctorName,
		})
	}
	return export.Render(format, export.Dataset{
		Name:    "laborergebnisse_" + l.opts.now().Format(time.DateOnly),
		Sheet:   "Laborergebnisse",
		Headers: []string{"Test", "Datum", "Wert", "Normalbereich", "Bewertung", "Arzt"},
		Rows:    rows,
		Records: cards,
	})
}

func (l *LabResults) Forget(sessionID string) {
	l.lists.Forget(sessionID)
}

// FilterLabResults classifies, filters and sorts results newest first.
func FilterLabResults(list []backend.LabResult, q LabQuery, loc *time.Location) []LabResultCard {
	cards := make([]LabResultCard, 0, len(list))
	for _, r := range list {
		if !containsFold(q.Text, r.TestName, r.DoctorName) {
			continue
		}
		measured, ok := parseTimestamp(r.Date, loc)
		if !q.Range.Contains(measured, ok) {
			continue
		}
		class := classifyResult(r)
		if q.Classification != "" && q.Classification != class {
			continue
		}
		card := LabResultCard{
			LabResult:      r,
			Classification: class,
			Label:          classLabels[class],
			Color:          classColors[class],
		}
		if ok {
			card.Measured = &measured
		}
		cards = append(cards, card)
	}
	slices.SortStableFunc(cards, func(a, b LabResultCard) int {
		return compareStartDesc(a.Measured, b.Measured)
	})
	return cards
}
