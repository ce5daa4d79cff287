package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

// RateLimiter keeps one token bucket per client key.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	limit    rate.Limit
	burst    int
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perSecond requests per key with the given burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	rl := newRateLimiter(perSecond, burst)
	go rl.sweep(5 * time.Minute)
	return rl
}

func newRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*clientLimiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

// Allow reports whether a request for key fits in its bucket.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.allowAt(key, time.Now())
}

func (rl *RateLimiter) allowAt(key string, now time.Time) bool {
	rl.mu.Lock()
	cl, ok := rl.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = cl
	}
	cl.lastSeen = now
	rl.mu.Unlock()
	return cl.limiter.AllowN(now, 1)
}

func (rl *RateLimiter) evictIdle(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, cl := range rl.limiters {
		if now.Sub(cl.lastSeen) > limiterIdleTTL {
			delete(rl.limiters, key)
		}
	}
}

func (rl *RateLimiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for now := range ticker.C {
		rl.evictIdle(now)
	}
}

// RateLimit rejects requests over the limit with 429. It runs after
// RouteGuard: signed-in patients are bucketed by session, everything else by
// client IP, because a guest can mint a new session id with every request.
func RateLimit(perSecond float64, burst int) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(perSecond, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(rateKey(r)) {
				writeGuardError(w, http.StatusTooManyRequests, "Zu viele Anfragen. Bitte warten Sie einen Moment.", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateKey(r *http.Request) string {
	if sess, ok := CurrentSession(r.Context()); ok && sess.Authenticated() && sess.ID != "" {
		return "sid:" + sess.ID
	}
	// RealIP has already rewritten RemoteAddr.
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return "ip:" + ip
}
