package portal

import (
	"context"
	"errors"

	"github.com/wolfman30/telemed-portal/internal/backend"
	"github.com/wolfman30/telemed-portal/internal/theme"
)

// AppTitle is shown in the app bar.
const AppTitle = "Telemedizin Portal"

// NavItem is one entry of the side navigation.
type NavItem struct {
	Title string `json:"title"`
	Path  string `json:"path"`
	Icon  string `json:"icon"`
}

// NavItems is the side navigation of signed-in patients.
var NavItems = []NavItem{
	{Title: "Dashboard", Path: "/", Icon: "dashboard"},
	{Title: "Termine & Ärzte", Path: "/doctors", Icon: "calendar_today"},
	{Title: "Rezepte & Medikamente", Path: "/prescriptions", Icon: "local_hospital"},
	{Title: "Berichte", Path: "/reports", Icon: "description"},
	{Title: "Laborergebnisse", Path: "/lab-results", Icon: "science"},
	{Title: "Gesundheitstipps", Path: "/health-tips", Icon: "fitness_center"},
	{Title: "FAQ", Path: "/faq", Icon: "help"},
	{Title: "Symptom-Checker", Path: "/symptom-checker", Icon: "help"},
	{Title: "Benutzerkonto", Path: "/account", Icon: "person"},
}

// GuestPages render without the navigation shell.
var GuestPages = map[string]string{
	"/login":    "Anmelden",
	"/register": "Registrieren",
}

var pageTitles = map[string]string{
	"/appointments": "Meine Termine",
}

// PageTitle returns the title of a portal page and whether the path is known.
func PageTitle(path string) (string, bool) {
	for _, item := range NavItems {
		if item.Path == path {
			return item.Title, true
		}
	}
	if t, ok := GuestPages[path]; ok {
		return t, true
	}
	t, ok := pageTitles[path]
	return t, ok
}

// PagePaths lists every page path of the signed-in shell.
func PagePaths() []string {
	paths := make([]string, 0, len(NavItems)+len(pageTitles))
	for _, item := range NavItems {
		paths = append(paths, item.Path)
	}
	for p := range pageTitles {
		paths = append(paths, p)
	}
	return paths
}

// LayoutView is the shell around every page.
type LayoutView struct {
	App    string        `json:"app"`
	Page   string        `json:"page"`
	Title  string        `json:"title"`
	Guest  bool          `json:"guest"`
	Theme  theme.Mode    `json:"theme"`
	User   *backend.User `json:"user,omitempty"`
	Nav    []NavItem     `json:"nav,omitempty"`
	Unread int           `json:"unread_notifications"`
}

// LayoutAPI is the backend surface of the shell.
type LayoutAPI interface {
	UnreadCount(ctx context.Context) (int, error)
}

// Layout builds the shell view.
type Layout struct {
	opts Options
}

func NewLayout(opts Options) *Layout {
	return &Layout{opts: opts.withDefaults()}
}

// Load renders the shell for path. Guests get no navigation and no backend
// call; the unread badge degrades to zero when the count is unavailable.
func (l *Layout) Load(ctx context.Context, path string, mode theme.Mode, user *backend.User, api LayoutAPI) (*LayoutView, error) {
	title, _ := PageTitle(path)
	view := &LayoutView{App: AppTitle, Page: path, Title: title, Theme: mode}
	if user == nil || api == nil {
		view.Guest = true
		return view, nil
	}
	view.User = user
	view.Nav = NavItems
	n, err := api.UnreadCount(ctx)
	switch {
	case errors.Is(err, backend.ErrUnauthorized):
		return nil, err
	case err != nil:
		l.opts.Logger.Warn("layout: failed to load unread count", "user_id", user.ID, "error", err)
	default:
		view.Unread = n
	}
	return view, nil
}
