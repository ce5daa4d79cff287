package portal

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/telemed-portal/internal/backend"
	"github.com/wolfman30/telemed-portal/internal/prefs"
	"github.com/wolfman30/telemed-portal/internal/resource"
)

// HealthTipCategories are the editorial categories in display order.
var HealthTipCategories = []string{"bewegung", "ernährung", "prävention", "gesundheit", "mental"}

var categoryColors = map[string]string{
	"bewegung":   "#4facfe",
	"ernährung":  "#43e97b",
	"prävention": "#fa709a",
	"mental":     "#a18cd1",
}

var categoryIcons = map[string]string{
	"bewegung":   "fitness_center",
	"ernährung":  "restaurant",
	"prävention": "local_hospital",
	"mental":     "spa",
}

// CategoryColor returns the accent colour of a health tip category.
func CategoryColor(category string) string {
	if c, ok := categoryColors[strings.ToLower(category)]; ok {
		return c
	}
	return "#667eea"
}

// CategoryIcon returns the icon key of a health tip category.
func CategoryIcon(category string) string {
	if i, ok := categoryIcons[strings.ToLower(category)]; ok {
		return i
	}
	return "tips_and_updates"
}

// HealthTipsAPI is the backend surface of the health tips page.
type HealthTipsAPI interface {
	ListHealthTips(ctx context.Context, category string) ([]backend.HealthTip, error)
}

// TipQuery filters health tips.
type TipQuery struct {
	Category       string
	Text           string
	BookmarkedOnly bool
}

// HealthTipCard is a tip decorated for display.
type HealthTipCard struct {
	backend.HealthTip
	Color      string `json:"color"`
	Icon       string `json:"icon"`
	Bookmarked bool   `json:"bookmarked"`
}

// HealthTipsView is the health tips page.
type HealthTipsView struct {
	Status     resource.Status `json:"status"`
	Categories []string        `json:"categories"`
	Category   string          `json:"category,omitempty"`
	Tips       []HealthTipCard `json:"tips"`
	Bookmarks  int             `json:"bookmarks"`
}

// HealthTips serves the health tips page and its bookmarks.
type HealthTips struct {
	opts  Options
	prefs prefs.Store
	lists *resource.Set[[]backend.HealthTip]
}

func NewHealthTips(store prefs.Store, opts Options) *HealthTips {
	if store == nil {
		store = prefs.NewMemoryStore()
	}
	return &HealthTips{
		opts:  opts.withDefaults(),
		prefs: store,
		lists: resource.NewSet[[]backend.HealthTip](),
	}
}

func (h *HealthTips) Load(ctx context.Context, sessionID string, userID int64, api HealthTipsAPI, q TipQuery) (*HealthTipsView, error) {
	category := strings.ToLower(strings.TrimSpace(q.Category))
	snap := h.lists.Get(sessionID).Reload(ctx, func(ctx context.Context) ([]backend.HealthTip, error) {
		return api.ListHealthTips(ctx, category)
	})
	if snap.Status == resource.StatusFailed {
		return nil, fmt.Errorf("portal: load health tips: %w", snap.Err)
	}

	bookmarks, err := h.prefs.Bookmarks(ctx, userID)
	if err != nil {
		h.opts.Logger.Warn("failed to load bookmarks", "user_id", userID, "error", err)
	}
	marked := make(map[int64]bool, len(bookmarks))
	for _, id := range bookmarks {
		marked[id] = true
	}

	view := &HealthTipsView{
		Status:     snap.Status,
		Categories: HealthTipCategories,
		Category:   category,
		Tips:       []HealthTipCard{},
		Bookmarks:  len(bookmarks),
	}
	for _, tip := range FilterHealthTips(snap.Data, category, q.Text) {
		if q.BookmarkedOnly && !marked[tip.ID] {
			continue
		}
		view.Tips = append(view.Tips, HealthTipCard{
			HealthTip:  tip,
			Color:      CategoryColor(tip.Category),
			Icon:       CategoryIcon(tip.Category),
			Bookmarked: marked[tip.ID],
		})
	}
	return view, nil
}

// ToggleBookmark flips the bookmark of a tip and returns the new state.
func (h *HealthTips) ToggleBookmark(ctx context.Context, userID, tipID int64) (bool, error) {
	if tipID <= 0 {
		return false, &ValidationError{Field: "id", Message: "Ungültiger Gesundheitstipp"}
	}
	on, err := h.prefs.ToggleBookmark(ctx, userID, tipID)
	if err != nil {
		return false, fmt.Errorf("portal: toggle bookmark: %w", err)
	}
	return on, nil
}

func (h *HealthTips) Forget(sessionID string) {
	h.lists.Forget(sessionID)
}

// FilterHealthTips keeps tips whose category equals category (ignoring case)
// and whose title or content contains text.
func FilterHealthTips(tips []backend.HealthTip, category, text string) []backend.HealthTip {
	out := make([]backend.HealthTip, 0, len(tips))
	for _, tip := range tips {
		if category != "" && !strings.EqualFold(tip.Category, category) {
			continue
		}
		if !containsFold(text, tip.Title, tip.Content) {
			continue
		}
		out = append(out, tip)
	}
	return out
}
