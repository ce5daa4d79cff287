package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/wolfman30/telemed-portal/internal/backend"
	"github.com/wolfman30/telemed-portal/internal/session"
)

func TestRateLimiterRefills(t *testing.T) {
	rl := newRateLimiter(1, 2)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.True(t, rl.allowAt("a", now))
	assert.True(t, rl.allowAt("a", now))
	assert.False(t, rl.allowAt("a", now))
	assert.True(t, rl.allowAt("b", now))
	assert.True(t, rl.allowAt("a", now.Add(1100*time.Millisecond)))
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	rl := newRateLimiter(1, 1)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	rl.allowAt("old", now)
	rl.allowAt("fresh", now.Add(limiterIdleTTL))

	rl.evictIdle(now.Add(limiterIdleTTL + time.Minute))

	assert.NotContains(t, rl.limiters, "old")
	assert.Contains(t, rl.limiters, "fresh")
}

func TestRateLimitBucketsSignedInPatientsBySession(t *testing.T) {
	mw := RateLimit(0.001, 1)(okHandler(nil))

	send := func(sid string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
		sess := session.Session{ID: sid, State: session.StateAuthenticated, User: &backend.User{ID: 1}}
		ctx := context.WithValue(WithSessionID(req.Context(), sid), currentSessionKey, sess)
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req.WithContext(ctx))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("one"))
	assert.Equal(t, http.StatusTooManyRequests, send("one"))
	assert.Equal(t, http.StatusOK, send("two"))
}

func TestRateLimitBucketsGuestsByIP(t *testing.T) {
	mw := RateLimit(0.001, 1)(okHandler(nil))

	send := func(remote string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = remote
		// Every cookieless request arrives with a freshly minted session id.
		req = req.WithContext(WithSessionID(req.Context(), uuid.NewString()))
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("203.0.113.7:5000"))
	for range 5 {
		assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.7:5001"))
	}
	assert.Equal(t, http.StatusOK, send("198.51.100.2:5000"))
}
