package portal

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/wolfman30/telemed-portal/internal/backend"
	"github.com/wolfman30/telemed-portal/internal/resource"
)

// DefaultMinQueryLength is the shortest query sent to the backend.
const DefaultMinQueryLength = 3

// SearchAPI is the backend surface of the global search.
type SearchAPI interface {
	Search(ctx context.Context, query string) (*backend.SearchResults, error)
}

// SearchView is the global search dropdown.
type SearchView struct {
	Query    string                 `json:"query"`
	TooShort bool                   `json:"too_short"`
	Empty    bool                   `json:"empty"`
	Results  *backend.SearchResults `json:"results,omitempty"`
}

// GlobalSearch debounces queries per session. A newer query supersedes the
// pending or in-flight one, whose caller gets resource.ErrSuperseded.
type GlobalSearch struct {
	opts       Options
	minLength  int
	debouncers *resource.Debouncers
}

func NewGlobalSearch(delay time.Duration, minLength int, opts Options) *GlobalSearch {
	if minLength <= 0 {
		minLength = DefaultMinQueryLength
	}
	return &GlobalSearch{
		opts:       opts.withDefaults(),
		minLength:  minLength,
		debouncers: resource.NewDebouncers(delay),
	}
}

func (g *GlobalSearch) Search(ctx context.Context, sessionID string, api SearchAPI, query string) (*SearchView, error) {
	query = strings.TrimSpace(query)
	tooShort := utf8.RuneCountInString(query) < g.minLength

	view, err := resource.Debounce(ctx, g.debouncers.For(sessionID), func(ctx context.Context) (*SearchView, error) {
		if tooShort {
			return &SearchView{Query: query, TooShort: true}, nil
		}
		res, err := api.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		return &SearchView{Query: query, Empty: res.Empty(), Results: res}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("portal: search %q: %w", query, err)
	}
	return view, nil
}

func (g *GlobalSearch) Forget(sessionID string) {
	g.debouncers.Forget(sessionID)
}
