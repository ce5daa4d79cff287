package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/telemed-portal/internal/backend"
	"github.com/wolfman30/telemed-portal/pkg/logging"
)

type fakeAuth struct {
	mu        sync.Mutex
	token     string
	loginErr  error
	regErr    error
	meErr     error
	user      *backend.User
	meCalls   int
	registers []backend.RegisterRequest
}

func (f *fakeAuth) Login(_ context.Context, email, password string) (*backend.TokenResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &backend.TokenResponse{AccessToken: f.token, TokenType: "bearer"}, nil
}

func (f *fakeAuth) Register(_ context.Context, req backend.RegisterRequest) error {
	f.mu.Lock()
	f.registers = append(f.registers, req)
	f.mu.Unlock()
	return f.regErr
}

func (f *fakeAuth) Me(_ context.Context, token string) (*backend.User, error) {
	f.mu.Lock()
	f.meCalls++
	f.mu.Unlock()
	if f.meErr != nil {
		return nil, f.meErr
	}
	return f.user, nil
}

type recordingObserver struct {
	events []string
}

func (r *recordingObserver) ObserveAuth(event string, ok bool) {
	if ok {
		r.events = append(r.events, event+":ok")
		return
	}
	r.events = append(r.events, event+":fail")
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func newTestManager(auth AuthAPI, store TokenStore) (*Manager, *recordingObserver) {
	obs := &recordingObserver{}
	return NewManager(store, auth, obs, logging.New("error")), obs
}

func TestRestoreWithoutTokenIsUnauthenticated(t *testing.T) {
	auth := &fakeAuth{}
	m, _ := newTestManager(auth, NewMemoryTokenStore())

	s, err := m.Restore(context.Background(), "sid-1")
	require.NoError(t, err)
	assert.Equal(t, StateUnauthenticated, s.State)
	assert.Zero(t, auth.meCalls)
}

func TestRestoreWithValidToken(t *testing.T) {
	store := NewMemoryTokenStore()
	token := signedToken(t, time.Now().Add(time.Hour))
	require.NoError(t, store.Set(context.Background(), "sid-1", token))
	auth := &fakeAuth{user: &backend.User{ID: 7, Email: "anna@example.com"}}
	m, obs := newTestManager(auth, store)

	s, err := m.Restore(context.Background(), "sid-1")
	require.NoError(t, err)
	assert.True(t, s.Authenticated())
	assert.Equal(t, int64(7), s.User.ID)
	assert.Equal(t, token, s.Token)
	assert.Equal(t, []string{"restore:ok"}, obs.events)

	// The user is now cached; Current must not hit /auth/me again.
	s, err = m.Current(context.Background(), "sid-1")
	require.NoError(t, err)
	assert.True(t, s.Authenticated())
	assert.Equal(t, 1, auth.meCalls)
}

func TestRestoreExpiredTokenSkipsBackend(t *testing.T) {
	store := NewMemoryTokenStore()
	require.NoError(t, store.Set(context.Background(), "sid-1", signedToken(t, time.Now().Add(-time.Minute))))
	auth := &fakeAuth{user: &backend.User{ID: 7, Email: "anna@example.com"}}
	m, _ := newTestManager(auth, store)

	s, err := m.Restore(context.Background(), "sid-1")
	require.NoError(t, err)
	assert.Equal(t, StateUnauthenticated, s.State)
	assert.Zero(t, auth.meCalls)

	tok, _ := store.Get(context.Background(), "sid-1")
	assert.Empty(t, tok)
}

func TestRestoreFailureClearsToken(t *testing.T) {
	store := NewMemoryTokenStore()
	require.NoError(t, store.Set(context.Background(), "sid-1", "opaque-token"))
	auth := &fakeAuth{meErr: backend.ErrUnauthorized}
	m, obs := newTestManager(auth, store)

	s, err := m.Restore(context.Background(), "sid-1")
	require.NoError(t, err)
	assert.Equal(t, StateUnauthenticated, s.State)
	assert.Equal(t, 1, auth.meCalls)
	assert.Equal(t, []string{"restore:fail"}, obs.events)

	tok, _ := store.Get(context.Background(), "sid-1")
	assert.Empty(t, tok)
}

func TestLoginPersistsTokenAndUser(t *testing.T) {
	store := NewMemoryTokenStore()
	auth := &fakeAuth{token: "tok-1", user: &backend.User{ID: 3, Email: "max@example.com"}}
	m, obs := newTestManager(auth, store)

	s, err := m.Login(context.Background(), "sid-1", " max@example.com ", "secret1")
	require.NoError(t, err)
	assert.True(t, s.Authenticated())

	tok, _ := store.Get(context.Background(), "sid-1")
	assert.Equal(t, "tok-1", tok)
	assert.Equal(t, []string{"login:ok"}, obs.events)
}

func TestLoginFailureLeavesNothingStored(t *testing.T) {
	store := NewMemoryTokenStore()
	auth := &fakeAuth{loginErr: &backend.APIError{Status: 400, Detail: "Incorrect email or password"}}
	m, _ := newTestManager(auth, store)

	s, err := m.Login(context.Background(), "sid-1", "max@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, StateUnauthenticated, s.State)
	assert.Equal(t, "Incorrect email or password", backend.DetailOf(err, LoginFailed))

	tok, _ := store.Get(context.Background(), "sid-1")
	assert.Empty(t, tok)
}

func TestLoginKeepsTokenWhenUserFetchFails(t *testing.T) {
	store := NewMemoryTokenStore()
	auth := &fakeAuth{token: "tok-1", meErr: errors.New("boom")}
	m, _ := newTestManager(auth, store)

	s, err := m.Login(context.Background(), "sid-1", "max@example.com", "secret1")
	require.Error(t, err)
	assert.Nil(t, s.User)

	tok, _ := store.Get(context.Background(), "sid-1")
	assert.Equal(t, "tok-1", tok)
}

func TestRegisterThenLogin(t *testing.T) {
	store := NewMemoryTokenStore()
	auth := &fakeAuth{token: "tok-1", user: &backend.User{ID: 9, Email: "neu@example.com"}}
	m, obs := newTestManager(auth, store)

	s, err := m.Register(context.Background(), "sid-1", backend.RegisterRequest{
		Email: "neu@example.com", Password: "secret1", Name: "Neu",
	})
	require.NoError(t, err)
	assert.True(t, s.Authenticated())
	require.Len(t, auth.registers, 1)
	assert.Equal(t, []string{"register:ok", "login:ok"}, obs.events)
}

func TestRegisterFailureDoesNotLogin(t *testing.T) {
	auth := &fakeAuth{regErr: &backend.APIError{Status: 400, Detail: "Email already registered"}}
	m, obs := newTestManager(auth, NewMemoryTokenStore())

	_, err := m.Register(context.Background(), "sid-1", backend.RegisterRequest{Email: "a@b.de", Password: "secret1"})
	require.Error(t, err)
	assert.Equal(t, []string{"register:fail"}, obs.events)
}

func TestLogoutClearsTokenAndUser(t *testing.T) {
	store := NewMemoryTokenStore()
	auth := &fakeAuth{token: "tok-1", user: &backend.User{ID: 3, Email: "max@example.com"}}
	m, _ := newTestManager(auth, store)

	_, err := m.Login(context.Background(), "sid-1", "max@example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, m.Logout(context.Background(), "sid-1"))

	tok, _ := store.Get(context.Background(), "sid-1")
	assert.Empty(t, tok)

	s, err := m.Current(context.Background(), "sid-1")
	require.NoError(t, err)
	assert.Equal(t, StateUnauthenticated, s.State)
}

func TestCurrentDropsUserWhenTokenVanished(t *testing.T) {
	store := NewMemoryTokenStore()
	auth := &fakeAuth{token: "tok-1", user: &backend.User{ID: 3, Email: "max@example.com"}}
	m, _ := newTestManager(auth, store)

	_, err := m.Login(context.Background(), "sid-1", "max@example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, store.Delete(context.Background(), "sid-1"))

	s, err := m.Current(context.Background(), "sid-1")
	require.NoError(t, err)
	assert.Equal(t, StateUnauthenticated, s.State)
}

func TestCurrentWithoutSessionID(t *testing.T) {
	m, _ := newTestManager(&fakeAuth{}, nil)
	s, err := m.Current(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, StateUnauthenticated, s.State)
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()
	assert.True(t, tokenExpired(signedToken(t, now.Add(-time.Second)), now))
	assert.False(t, tokenExpired(signedToken(t, now.Add(time.Hour)), now))
	assert.False(t, tokenExpired("not-a-jwt", now))
}

func TestSetUserReplacesCachedUser(t *testing.T) {
	store := NewMemoryTokenStore()
	auth := &fakeAuth{token: "tok-1", user: &backend.User{ID: 3, Name: "Max"}}
	m, _ := newTestManager(auth, store)
	_, err := m.Login(context.Background(), "sid-1", "max@example.com", "secret1")
	require.NoError(t, err)

	m.SetUser("sid-1", &backend.User{ID: 3, Name: "Max Mustermann"})

	s, err := m.Current(context.Background(), "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "Max Mustermann", s.User.Name)
	assert.Equal(t, 1, auth.meCalls)
}

func TestDiscardDropsTokenWithoutLogoutEvent(t *testing.T) {
	store := NewMemoryTokenStore()
	auth := &fakeAuth{token: "tok-1", user: &backend.User{ID: 3}}
	m, obs := newTestManager(auth, store)
	_, err := m.Login(context.Background(), "sid-1", "max@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, m.Discard(context.Background(), "sid-1"))

	tok, _ := store.Get(context.Background(), "sid-1")
	assert.Empty(t, tok)
	s, err := m.Current(context.Background(), "sid-1")
	require.NoError(t, err)
	assert.False(t, s.Authenticated())
	assert.Equal(t, []string{"login:ok"}, obs.events)
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	store := NewMemoryTokenStore()
	auth := &fakeAuth{token: "tok-1", user: &backend.User{ID: 3}}
	m, _ := newTestManager(auth, store)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	var expired []string
	m.OnExpire(func(sid string) { expired = append(expired, sid) })

	_, err := m.Login(context.Background(), "idle", "max@example.com", "secret1")
	require.NoError(t, err)
	now = now.Add(20 * time.Minute)
	_, err = m.Login(context.Background(), "active", "max@example.com", "secret1")
	require.NoError(t, err)
	now = now.Add(20 * time.Minute)

	assert.Equal(t, 1, m.Sweep(30*time.Minute))
	assert.Equal(t, []string{"idle"}, expired)
	assert.Len(t, m.users, 1)
	assert.Contains(t, m.users, "active")

	// The token survives eviction, so the next request restores the user.
	s, err := m.Current(context.Background(), "idle")
	require.NoError(t, err)
	assert.True(t, s.Authenticated())
}

func TestCurrentKeepsActiveSessionsCached(t *testing.T) {
	store := NewMemoryTokenStore()
	auth := &fakeAuth{token: "tok-1", user: &backend.User{ID: 3}}
	m, _ := newTestManager(auth, store)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	_, err := m.Login(context.Background(), "sid-1", "max@example.com", "secret1")
	require.NoError(t, err)
	now = now.Add(25 * time.Minute)
	_, err = m.Current(context.Background(), "sid-1")
	require.NoError(t, err)
	now = now.Add(10 * time.Minute)

	assert.Zero(t, m.Sweep(30*time.Minute))
}
