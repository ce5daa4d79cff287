package portal

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/telemed-portal/internal/backend"
)

// AllTab is the FAQ tab showing every category.
const AllTab = "all"

// FAQAPI is the backend surface of the FAQ page.
type FAQAPI interface {
	ListFAQ(ctx context.Context) ([]backend.FAQ, error)
}

// FAQView is the FAQ page.
type FAQView struct {
	Tabs  []string      `json:"tabs"`
	Tab   string        `json:"tab"`
	Items []backend.FAQ `json:"items"`
	Total int           `json:"total"`
}

// FAQ serves the FAQ page.
type FAQ struct {
	opts Options
}

func NewFAQ(opts Options) *FAQ {
	return &FAQ{opts: opts.withDefaults()}
}

func (f *FAQ) Load(ctx context.Context, api FAQAPI, tab, text string) (*FAQView, error) {
	items, err := api.ListFAQ(ctx)
	if err != nil {
		return nil, fmt.Errorf("portal: load faq: %w", err)
	}
	tabs := FAQTabs(items)
	tab = strings.TrimSpace(tab)
	if tab == "" {
		tab = AllTab
	}
	return &FAQView{
		Tabs:  tabs,
		Tab:   tab,
		Items: FilterFAQ(items, tab, text),
		Total: len(items),
	}, nil
}

// FAQTabs returns "all" followed by the distinct categories in first-seen order.
func FAQTabs(items []backend.FAQ) []string {
	tabs := []string{AllTab}
	seen := map[string]bool{}
	for _, it := range items {
		c := strings.TrimSpace(it.Category)
		if c == "" || seen[strings.ToLower(c)] {
			continue
		}
		seen[strings.ToLower(c)] = true
		tabs = append(tabs, c)
	}
	return tabs
}

// FilterFAQ keeps entries of the tab whose question or answer contains text.
func FilterFAQ(items []backend.FAQ, tab, text string) []backend.FAQ {
	out := make([]backend.FAQ, 0, len(items))
	for _, it := range items {
		if tab != "" && tab != AllTab && !strings.EqualFold(strings.TrimSpace(it.Category), tab) {
			continue
		}
		if !containsFold(text, it.Question, it.Answer) {
			continue
		}
		out = append(out, it)
	}
	return out
}
