package router

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/telemed-portal/internal/backend"
	"github.com/wolfman30/telemed-portal/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/telemed-portal/internal/http/middleware"
	"github.com/wolfman30/telemed-portal/internal/portal"
	"github.com/wolfman30/telemed-portal/internal/prefs"
	"github.com/wolfman30/telemed-portal/internal/session"
	"github.com/wolfman30/telemed-portal/internal/symptoms"
	"github.com/wolfman30/telemed-portal/pkg/logging"
)

type fixedSessions struct {
	sess session.Session
}

func (f fixedSessions) Current(_ context.Context, sid string) (session.Session, error) {
	out := f.sess
	out.ID = sid
	return out, nil
}

type noopSessions struct{}

func (noopSessions) Login(context.Context, string, string, string) (session.Session, error) {
	return session.Session{}, backend.ErrUnauthorized
}

func (noopSessions) Register(context.Context, string, backend.RegisterRequest) (session.Session, error) {
	return session.Session{}, backend.ErrUnauthorized
}

func (noopSessions) Logout(context.Context, string) error { return nil }

func (noopSessions) Discard(context.Context, string) error { return nil }

func (noopSessions) SetUser(string, *backend.User) {}

func newTestRouter(t *testing.T, signedIn bool) http.Handler {
	t.Helper()
	logger := logging.New("error")

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/notifications/unread-count":
			_, _ = io.WriteString(w, `{"count": 0}`)
		default:
			_, _ = io.WriteString(w, `[]`)
		}
	}))
	t.Cleanup(api.Close)
	client := backend.New(api.URL, backend.WithLogger(logger), backend.WithRetryPause(0))

	pages := portal.NewPages(portal.Deps{
		Options: portal.Options{Location: time.UTC, Logger: logger},
		Prefs:   prefs.NewMemoryStore(),
		History: symptoms.NewMemoryHistoryStore(5),
	})
	h := handlers.New(handlers.Config{
		Pages:    pages,
		API:      func(token string) handlers.BackendAPI { return client.WithToken(token) },
		Sessions: noopSessions{},
		Logger:   logger,
	})

	state := session.Session{State: session.StateUnauthenticated}
	if signedIn {
		state = session.Session{State: session.StateAuthenticated, User: &backend.User{ID: 1, Email: "anna@example.de"}, Token: "tok"}
	}
	return New(&Config{
		Logger:        logger,
		Handler:       h,
		Sessions:      fixedSessions{sess: state},
		Session:       httpmiddleware.SessionConfig{CookieName: "portal_session", TTL: time.Hour},
		Notifications: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusSwitchingProtocols) }),
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "# metrics")
		}),
	})
}

func serve(router http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGuestIsRedirectedFromEveryPage(t *testing.T) {
	router := newTestRouter(t, false)

	for _, path := range portal.PagePaths() {
		rec := serve(router, http.MethodGet, path)
		assert.Equal(t, http.StatusFound, rec.Code, path)
		assert.Equal(t, "/login", rec.Header().Get("Location"), path)
	}
}

func TestGuestReachesGuestPages(t *testing.T) {
	router := newTestRouter(t, false)

	for path := range portal.GuestPages {
		rec := serve(router, http.MethodGet, path)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Header().Get("Set-Cookie"), "portal_session=", path)
	}
}

func TestSignedInPatientSkipsGuestPages(t *testing.T) {
	router := newTestRouter(t, true)

	for path := range portal.GuestPages {
		rec := serve(router, http.MethodGet, path)
		assert.Equal(t, http.StatusFound, rec.Code, path)
		assert.Equal(t, "/", rec.Header().Get("Location"), path)
	}
	for _, path := range portal.PagePaths() {
		rec := serve(router, http.MethodGet, path)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestGuestAPIAndSocketGetUnauthorized(t *testing.T) {
	router := newTestRouter(t, false)

	for _, path := range []string{"/api/dashboard", "/api/appointments", "/api/notifications", "/ws/notifications"} {
		rec := serve(router, http.MethodGet, path)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.JSONEq(t, `{"error":"Nicht angemeldet","redirect":"/login"}`, rec.Body.String(), path)
	}
}

func TestPublicEndpoints(t *testing.T) {
	router := newTestRouter(t, false)

	rec := serve(router, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = serve(router, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, http.MethodGet, "/api/theme")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"mode":"light"}`, rec.Body.String())

	rec = serve(router, http.MethodPost, "/api/theme/toggle")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, http.MethodGet, "/logout")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestUnknownPaths(t *testing.T) {
	router := newTestRouter(t, true)

	rec := serve(router, http.MethodGet, "/does-not-exist")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = serve(router, http.MethodGet, "/api/does-not-exist")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSignedInAPIReachesBackend(t *testing.T) {
	router := newTestRouter(t, true)

	rec := serve(router, http.MethodGet, "/api/faq")
	assert.Equal(t, http.StatusOK, rec.Code)
}

// newAuthRouter serves the router with a real session manager in front of a
// backend that signs in any credentials as patient 42.
func newAuthRouter(t *testing.T, rate float64, burst int) http.Handler {
	t.Helper()
	logger := logging.New("error")

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/auth/login":
			_, _ = io.WriteString(w, `{"access_token": "tok-42", "token_type": "bearer"}`)
		case "/auth/me":
			_, _ = io.WriteString(w, `{"id": 42, "email": "vera@example.de", "name": "Vera"}`)
		default:
			_, _ = io.WriteString(w, `[]`)
		}
	}))
	t.Cleanup(api.Close)
	client := backend.New(api.URL, backend.WithLogger(logger), backend.WithRetryPause(0))
	manager := session.NewManager(session.NewMemoryTokenStore(), session.BackendAuth{Client: client}, nil, logger)

	pages := portal.NewPages(portal.Deps{
		Options: portal.Options{Location: time.UTC, Logger: logger},
		Prefs:   prefs.NewMemoryStore(),
		History: symptoms.NewMemoryHistoryStore(5),
	})
	h := handlers.New(handlers.Config{
		Pages:    pages,
		API:      func(token string) handlers.BackendAPI { return client.WithToken(token) },
		Sessions: manager,
		Logger:   logger,
	})
	return New(&Config{
		Logger:    logger,
		Handler:   h,
		Sessions:  manager,
		Session:   httpmiddleware.SessionConfig{CookieName: "portal_sid", TTL: time.Hour},
		RateLimit: rate,
		RateBurst: burst,
	})
}

func postLogin(router http.Handler, remote string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email": "vera@example.de", "password": "geheim123"}`))
	req.Header.Set("Content-Type", "application/json")
	if remote != "" {
		req.RemoteAddr = remote
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestLoginRotatesPlantedSessionID(t *testing.T) {
	router := newAuthRouter(t, 0, 0)
	planted := &http.Cookie{Name: "portal_sid", Value: "11111111-2222-3333-4444-555555555555"}

	rec := postLogin(router, "", planted)
	require.Equal(t, http.StatusOK, rec.Code)

	var issued *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "portal_sid" {
			issued = c
		}
	}
	require.NotNil(t, issued, "login must issue a new session cookie")
	assert.NotEqual(t, planted.Value, issued.Value)
	assert.True(t, issued.HttpOnly)

	me := func(c *http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.AddCookie(c)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, me(planted).Code)

	rec = me(&http.Cookie{Name: "portal_sid", Value: issued.Value})
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "authenticated", body["state"])
}

func TestCookielessLoginsAreRateLimitedByIP(t *testing.T) {
	router := newAuthRouter(t, 1, 1)

	limited := 0
	for range 10 {
		if postLogin(router, "203.0.113.9:4000").Code == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.GreaterOrEqual(t, limited, 8)
}
