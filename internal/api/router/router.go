package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/telemed-portal/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/telemed-portal/internal/http/middleware"
	"github.com/wolfman30/telemed-portal/internal/portal"
	"github.com/wolfman30/telemed-portal/pkg/logging"
)

// Public paths skip the route guard. A trailing "/" matches the subtree.
var publicPaths = []string{
	"/health",
	"/metrics",
	"/logout",
	"/api/auth/login",
	"/api/auth/register",
	"/api/theme",
	"/api/theme/",
}

// Guest-only paths redirect signed-in patients to the dashboard.
var guestOnlyPaths = []string{"/login", "/register"}

// Config holds router configuration
type Config struct {
	Logger        *logging.Logger
	Handler       *handlers.Handler
	Sessions      httpmiddleware.SessionResolver
	Session       httpmiddleware.SessionConfig
	Notifications http.Handler
	// MetricsHandler is served at /metrics when set.
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	RateLimit          float64
	RateBurst          int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.SessionCookie(cfg.Session))
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(httpmiddleware.RouteGuard(httpmiddleware.GuardConfig{
		Sessions:  cfg.Sessions,
		Public:    publicPaths,
		GuestOnly: guestOnlyPaths,
		LoginPath: "/login",
		HomePath:  "/",
		Logger:    cfg.Logger,
	}))
	if cfg.RateLimit > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimit, cfg.RateBurst))
	}

	h := cfg.Handler

	// Public endpoints
	r.Get("/health", handlers.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	r.Get("/logout", h.Logout)
	r.Post("/logout", h.Logout)

	// Page shells
	r.Group(func(pages chi.Router) {
		pages.Use(middleware.NoCache)
		for _, path := range portal.PagePaths() {
			pages.Get(path, h.Page)
		}
		for path := range portal.GuestPages {
			pages.Get(path, h.Page)
		}
	})

	r.With(middleware.Compress(5), middleware.Timeout(60*time.Second)).Mount("/api", h.APIRoutes())

	if cfg.Notifications != nil {
		r.Handle("/ws/notifications", cfg.Notifications)
	}

	r.NotFound(h.NotFound)
	return r
}
