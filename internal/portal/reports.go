package portal

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/telemed-portal/internal/backend"
	"github.com/wolfman30/telemed-portal/internal/export"
	"github.com/wolfman30/telemed-portal/internal/resource"
)

// ReportsAPI is the backend surface of the reports page.
type ReportsAPI interface {
	ListReports(ctx context.Context) ([]backend.Report, error)
	DownloadReport(ctx context.Context, id int64) (*backend.Download, error)
}

var reportCategoryLabels = map[backend.ReportCategory]string{
	backend.CategoryLab:          "Labor",
	backend.CategoryConsultation: "Konsultation",
	backend.CategoryImaging:      "Bildgebung",
}

// ParseReportCategory accepts lab, consultation, imaging or empty (all).
func ParseReportCategory(s string) (backend.ReportCategory, error) {
	c := backend.ReportCategory(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case "all":
		return "", nil
	case "", backend.CategoryLab, backend.CategoryConsultation, backend.CategoryImaging:
		return c, nil
	}
	return "", &ValidationError{Field: "category", Message: "Unbekannte Kategorie"}
}

// ReportQuery filters the report list.
type ReportQuery struct {
	Category backend.ReportCategory
	Text     string
	Range    DateRange
}

// ReportCard is a report decorated for display.
type ReportCard struct {
	backend.Report
	CategoryLabel string     `json:"category_label,omitempty"`
	Created       *time.Time `json:"created,omitempty"`
}

// ReportsView is the reports page.
type ReportsView struct {
	Status  resource.Status `json:"status"`
	Reports []ReportCard    `json:"reports"`
	Total   int             `json:"total"`
}

// Reports serves the reports page.
type Reports struct {
	opts  Options
	lists *resource.Set[[]backend.Report]
}

func NewReports(opts Options) *Reports {
	return &Reports{opts: opts.withDefaults(), lists: resource.NewSet[[]backend.Report]()}
}

func (r *Reports) Load(ctx context.Context, sessionID string, api ReportsAPI, q ReportQuery) (*ReportsView, error) {
	snap := r.lists.Get(sessionID).Reload(ctx, api.ListReports)
	if snap.Status == resource.StatusFailed {
		return nil, fmt.Errorf("portal: load reports: %w", snap.Err)
	}
	return &ReportsView{
		Status:  snap.Status,
		Reports: FilterReports(snap.Data, q, r.opts.Location),
		Total:   len(snap.Data),
	}, nil
}

// Download passes the report PDF through.
func (r *Reports) Download(ctx context.Context, api ReportsAPI, id int64) (*backend.Download, error) {
	dl, err := api.DownloadReport(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("portal: download report %d: %w", id, err)
	}
	return dl, nil
}

// Export renders the filtered reports in the requested format.
func (r *Reports) Export(ctx context.Context, api ReportsAPI, q ReportQuery, format export.Format) (*export.File, error) {
	list, err := api.ListReports(ctx)
	if err != nil {
		return nil, fmt.Errorf("portal: export reports: %w", err)
	}
	cards := FilterReports(list, q, r.opts.Location)

	records := make([]backend.Report, 0, len(cards))
	rows := make([][]string, 0, len(cards))
	for _, c := range cards {
		records = append(records, c.Report)
		rows = append(rows, []string{
			strconv.FormatInt(c.ID, 10),
			c.Title,
			c.DoctorName,
			c.CategoryLabel,
			c.CreatedAt,
			c.Status,
		})
	}
	return export.Render(format, export.Dataset{
		Name:    "arztberichte_" + r.opts.now().Format(time.DateOnly),
		Sheet:   "Arztberichte",
		Headers: []string{"ID", "Titel", "Arzt", "Kategorie", "Erstellt am", "Status"},
		Rows:    rows,
		Records: records,
	})
}

func (r *Reports) Forget(sessionID string) {
	r.lists.Forget(sessionID)
}

// FilterReports applies category, text and date filters and sorts newest first.
func FilterReports(list []backend.Report, q ReportQuery, loc *time.Location) []ReportCard {
	cards := make([]ReportCard, 0, len(list))
	for _, rep := range list {
		if q.Category != "" && rep.Category != q.Category {
			continue
		}
		if !containsFold(q.Text, rep.Title, rep.DoctorName, rep.Content) {
			continue
		}
		created, ok := parseTimestamp(rep.CreatedAt, loc)
		if !q.Range.Contains(created, ok) {
			continue
		}
		card := ReportCard{Report: rep, CategoryLabel: reportCategoryLabels[rep.Category]}
		if ok {
			card.Created = &created
		}
		cards = append(cards, card)
	}
	slices.SortStableFunc(cards, func(a, b ReportCard) int {
		return compareStartDesc(a.Created, b.Created)
	})
	return cards
}
