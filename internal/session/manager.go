package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/wolfman30/telemed-portal/internal/backend"
	"github.com/wolfman30/telemed-portal/pkg/logging"
)

// State is the lifecycle state of a browser session.
type State string

const (
	StateLoading         State = "loading"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
)

// Session is a snapshot of one browser session.
type Session struct {
	ID    string        `json:"-"`
	State State         `json:"state"`
	User  *backend.User `json:"user,omitempty"`
	Token string        `json:"-"`
}

// Authenticated reports whether the session holds a user.
func (s Session) Authenticated() bool {
	return s.State == StateAuthenticated && s.User != nil
}

// AuthAPI is the subset of the backend used by the session lifecycle.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*backend.TokenResponse, error)
	Register(ctx context.Context, req backend.RegisterRequest) error
	Me(ctx context.Context, token string) (*backend.User, error)
}

// Observer records session lifecycle events.
type Observer interface {
	ObserveAuth(event string, ok bool)
}

// BackendAuth adapts a backend.Client to AuthAPI.
type BackendAuth struct {
	Client *backend.Client
}

func (b BackendAuth) Login(ctx context.Context, email, password string) (*backend.TokenResponse, error) {
	return b.Client.Login(ctx, email, password)
}

func (b BackendAuth) Register(ctx context.Context, req backend.RegisterRequest) error {
	return b.Client.Register(ctx, req)
}

func (b BackendAuth) Me(ctx context.Context, token string) (*backend.User, error) {
	return b.Client.WithToken(token).Me(ctx)
}

// Manager owns the auth lifecycle of every browser session: the token lives in
// the TokenStore, the user only in memory until the session goes idle.
type Manager struct {
	tokens   TokenStore
	auth     AuthAPI
	logger   *logging.Logger
	observer Observer
	now      func() time.Time

	restores singleflight.Group

	mu       sync.Mutex
	users    map[string]*cachedUser
	onExpire []func(sessionID string)
}

type cachedUser struct {
	user     *backend.User
	lastSeen time.Time
}

// NewManager creates a session manager.
func NewManager(tokens TokenStore, auth AuthAPI, observer Observer, logger *logging.Logger) *Manager {
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		tokens:   tokens,
		auth:     auth,
		logger:   logger,
		observer: observer,
		now:      time.Now,
		users:    make(map[string]*cachedUser),
	}
}

// Current returns the session, restoring it from the persisted token when the
// user is not yet known in memory.
func (m *Manager) Current(ctx context.Context, sessionID string) (Session, error) {
	if sessionID == "" {
		return Session{State: StateUnauthenticated}, nil
	}
	var user *backend.User
	m.mu.Lock()
	if c, ok := m.users[sessionID]; ok {
		c.lastSeen = m.now()
		user = c.user
	}
	m.mu.Unlock()

	if user != nil {
		token, err := m.tokens.Get(ctx, sessionID)
		if err != nil {
			return Session{ID: sessionID, State: StateLoading}, err
		}
		if token != "" {
			return Session{ID: sessionID, State: StateAuthenticated, User: user, Token: token}, nil
		}
		// Token expired out of the store: drop the stale user.
		m.forgetUser(sessionID)
	}
	return m.Restore(ctx, sessionID)
}

// Restore reads the persisted token and attempts one /auth/me call. Any
// failure clears the token and settles to unauthenticated. Concurrent restores
// of the same session share one backend call.
func (m *Manager) Restore(ctx context.Context, sessionID string) (Session, error) {
	v, err, _ := m.restores.Do(sessionID, func() (any, error) {
		return m.restore(ctx, sessionID)
	})
	if err != nil {
		return Session{ID: sessionID, State: StateLoading}, err
	}
	return v.(Session), nil
}

func (m *Manager) restore(ctx context.Context, sessionID string) (Session, error) {
	anon := Session{ID: sessionID, State: StateUnauthenticated}

	token, err := m.tokens.Get(ctx, sessionID)
	if err != nil {
		return anon, err
	}
	if token == "" {
		return anon, nil
	}

	if tokenExpired(token, m.now()) {
		m.logger.Info("discarding expired access token", "session_id", sessionID)
		m.observe("restore", false)
		return anon, m.tokens.Delete(ctx, sessionID)
	}

	user, err := m.auth.Me(ctx, token)
	if err != nil {
		m.logger.Info("session restore failed, clearing token", "session_id", sessionID, "error", err)
		m.observe("restore", false)
		if delErr := m.tokens.Delete(ctx, sessionID); delErr != nil {
			return anon, delErr
		}
		return anon, nil
	}

	m.rememberUser(sessionID, user)
	m.observe("restore", true)
	return Session{ID: sessionID, State: StateAuthenticated, User: user, Token: token}, nil
}

// Login fetches a token, persists it, then fetches the user. The two calls are
// not atomic: when the user fetch fails the token stays stored and the user
// stays unset until the next restore.
func (m *Manager) Login(ctx context.Context, sessionID, email, password string) (Session, error) {
	if sessionID == "" {
		return Session{State: StateUnauthenticated}, errors.New("session: missing session id")
	}
	tok, err := m.auth.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		m.observe("login", false)
		return Session{ID: sessionID, State: StateUnauthenticated}, err
	}
	if err := m.tokens.Set(ctx, sessionID, tok.AccessToken); err != nil {
		m.observe("login", false)
		return Session{ID: sessionID, State: StateUnauthenticated}, err
	}

	user, err := m.auth.Me(ctx, tok.AccessToken)
	if err != nil {
		m.observe("login", false)
		return Session{ID: sessionID, State: StateUnauthenticated, Token: tok.AccessToken}, fmt.Errorf("session: fetch user after login: %w", err)
	}
	m.rememberUser(sessionID, user)
	m.observe("login", true)
	m.logger.Info("patient logged in", "session_id", sessionID, "user_id", user.ID)
	return Session{ID: sessionID, State: StateAuthenticated, User: user, Token: tok.AccessToken}, nil
}

// Register creates the account and logs in with the same credentials.
func (m *Manager) Register(ctx context.Context, sessionID string, req backend.RegisterRequest) (Session, error) {
	if err := m.auth.Register(ctx, req); err != nil {
		m.observe("register", false)
		return Session{ID: sessionID, State: StateUnauthenticated}, err
	}
	m.observe("register", true)
	return m.Login(ctx, sessionID, req.Email, req.Password)
}

// Logout clears the token and the in-memory user.
func (m *Manager) Logout(ctx context.Context, sessionID string) error {
	m.forgetUser(sessionID)
	if sessionID == "" {
		return nil
	}
	err := m.tokens.Delete(ctx, sessionID)
	m.observe("logout", err == nil)
	return err
}

// Discard drops a session id without counting it as a logout, e.g. the guest
// id a browser held before sign-in.
func (m *Manager) Discard(ctx context.Context, sessionID string) error {
	m.forgetUser(sessionID)
	if sessionID == "" {
		return nil
	}
	return m.tokens.Delete(ctx, sessionID)
}

// OnExpire registers fn to run for every session Sweep evicts.
func (m *Manager) OnExpire(fn func(sessionID string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = append(m.onExpire, fn)
}

// Sweep evicts users idle for longer than maxIdle and returns how many went.
// Tokens stay in the store, so a returning browser is restored from it.
func (m *Manager) Sweep(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)
	m.mu.Lock()
	var expired []string
	for sid, c := range m.users {
		if c.lastSeen.Before(cutoff) {
			expired = append(expired, sid)
			delete(m.users, sid)
		}
	}
	hooks := append([]func(string){}, m.onExpire...)
	m.mu.Unlock()

	for _, sid := range expired {
		for _, fn := range hooks {
			fn(sid)
		}
	}
	if len(expired) > 0 {
		m.logger.Debug("evicted idle sessions", "count", len(expired))
	}
	return len(expired)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, maxIdle, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(maxIdle)
		}
	}
}

// SetUser replaces the cached user of a signed-in session, e.g. after a
// profile update.
func (m *Manager) SetUser(sessionID string, user *backend.User) {
	if sessionID == "" || user == nil {
		return
	}
	m.rememberUser(sessionID, user)
}

func (m *Manager) rememberUser(sessionID string, user *backend.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[sessionID] = &cachedUser{user: user, lastSeen: m.now()}
}

func (m *Manager) forgetUser(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, sessionID)
}

func (m *Manager) observe(event string, ok bool) {
	if m.observer != nil {
		m.observer.ObserveAuth(event, ok)
	}
}

// tokenExpired inspects the unverified exp claim. Opaque or unparsable tokens
// are treated as live and left to the backend to judge.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.After(now)
}
