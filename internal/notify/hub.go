// Package notify pushes unread notification counts to connected browsers.
// One poller runs per session while at least one websocket is subscribed.
package notify

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/wolfman30/telemed-portal/internal/backend"
	"github.com/wolfman30/telemed-portal/pkg/logging"
)

// DefaultInterval is how often the unread count is refreshed.
const DefaultInterval = 30 * time.Second

// Source reads the unread count on behalf of a session.
type Source interface {
	UnreadCount(ctx context.Context, sessionID string) (int, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, sessionID string) (int, error)

func (f SourceFunc) UnreadCount(ctx context.Context, sessionID string) (int, error) {
	return f(ctx, sessionID)
}

// Observer records pushes and subscriber churn.
type Observer interface {
	ObservePush()
	SubscriberAdded()
	SubscriberRemoved()
}

// Message is sent to the browser.
type Message struct {
	Type   string `json:"type"` // "unread", "unauthorized", "pong"
	Unread int    `json:"unread"`
}

type inbound struct {
	Type string `json:"type"` // "ping", "refresh"
}

// Config wires a Hub.
type Config struct {
	Source    Source
	SessionID func(r *http.Request) string
	Interval  time.Duration
	Observer  Observer
	Logger    *logging.Logger
}

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *subscriber) send(msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return websocket.JSON.Send(s.conn, msg)
}

type session struct {
	subs    map[*subscriber]struct{}
	last    int
	known   bool
	cancel  context.CancelFunc
	refresh chan struct{}
}

// Hub tracks websocket subscribers per session and runs their pollers.
type Hub struct {
	source    Source
	sessionID func(r *http.Request) string
	interval  time.Duration
	observer  Observer
	logger    *logging.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

func NewHub(cfg Config) *Hub {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Hub{
		source:    cfg.Source,
		sessionID: cfg.SessionID,
		interval:  cfg.Interval,
		observer:  cfg.Observer,
		logger:    cfg.Logger,
		sessions:  make(map[string]*session),
	}
}

// HandleWebSocket upgrades the request and streams unread counts until the
// browser disconnects.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sid := ""
	if h.sessionID != nil {
		sid = h.sessionID(r)
	}
	if sid == "" {
		http.Error(w, "missing session", http.StatusUnauthorized)
		return
	}
	websocket.Handler(func(conn *websocket.Conn) {
		h.serve(conn, sid)
	}).ServeHTTP(w, r)
}

func (h *Hub) serve(conn *websocket.Conn, sid string) {
	sub := &subscriber{conn: conn}
	h.subscribe(sid, sub)
	defer h.unsubscribe(sid, sub)

	h.logger.Debug("notify: subscriber connected", "session_id", sid)
	for {
		var msg inbound
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("notify: subscriber disconnected", "session_id", sid, "error", err)
			return
		}
		switch msg.Type {
		case "ping":
			_ = sub.send(Message{Type: "pong"})
		case "refresh":
			h.Refresh(sid)
		}
	}
}

// Subscribers returns the number of open websockets of a session.
func (h *Hub) Subscribers(sid string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.sessions[sid]; ok {
		return len(s.subs)
	}
	return 0
}

// Refresh asks the session's poller to fetch the count now, e.g. after the
// patient marked notifications read.
func (h *Hub) Refresh(sid string) {
	h.mu.Lock()
	s, ok := h.sessions[sid]
	h.mu.Unlock()
	if !ok {
		return
	}
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// Close stops every poller. Open websockets are left to their handlers.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sid, s := range h.sessions {
		s.cancel()
		delete(h.sessions, sid)
	}
}

func (h *Hub) subscribe(sid string, sub *subscriber) {
	h.mu.Lock()
	s, ok := h.sessions[sid]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		s = &session{
			subs:    make(map[*subscriber]struct{}),
			cancel:  cancel,
			refresh: make(chan struct{}, 1),
		}
		h.sessions[sid] = s
		go h.poll(ctx, sid, s)
	}
	s.subs[sub] = struct{}{}
	last, known := s.last, s.known
	h.mu.Unlock()

	if h.observer != nil {
		h.observer.SubscriberAdded()
	}
	if known {
		h.push(sub, Message{Type: "unread", Unread: last})
	}
}

func (h *Hub) unsubscribe(sid string, sub *subscriber) {
	h.mu.Lock()
	if s, ok := h.sessions[sid]; ok {
		if _, member := s.subs[sub]; member {
			delete(s.subs, sub)
			if len(s.subs) == 0 {
				s.cancel()
				delete(h.sessions, sid)
			}
		}
	}
	h.mu.Unlock()

	if h.observer != nil {
		h.observer.SubscriberRemoved()
	}
}

func (h *Hub) poll(ctx context.Context, sid string, s *session) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}
		if !h.check(ctx, sid, s) {
			if ctx.Err() == nil {
				h.retire(sid, s)
			}
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-s.refresh:
		}
	}
}

// retire drops a session whose poller stopped and closes its websockets, so
// the browser reconnects into a fresh session after signing in again.
func (h *Hub) retire(sid string, s *session) {
	h.mu.Lock()
	if h.sessions[sid] == s {
		delete(h.sessions, sid)
	}
	s.cancel()
	subs := make([]*subscriber, 0, len(s.subs))
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subs = make(map[*subscriber]struct{})
	h.mu.Unlock()

	for _, sub := range subs {
		_ = sub.conn.Close()
	}
	h.logger.Debug("notify: session retired", "session_id", sid, "subscribers", len(subs))
}

// check fetches the count and pushes it when it changed. It returns false
// when the session is no longer authenticated.
func (h *Hub) check(ctx context.Context, sid string, s *session) bool {
	if h.source == nil {
		return true
	}
	n, err := h.source.UnreadCount(ctx, sid)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		if errors.Is(err, backend.ErrUnauthorized) {
			h.broadcast(sid, s, Message{Type: "unauthorized"})
			return false
		}
		h.logger.Warn("notify: unread count failed", "session_id", sid, "error", err)
		return true
	}

	h.mu.Lock()
	changed := !s.known || s.last != n
	s.last, s.known = n, true
	h.mu.Unlock()

	if changed {
		h.broadcast(sid, s, Message{Type: "unread", Unread: n})
	}
	return true
}

func (h *Hub) broadcast(sid string, s *session, msg Message) {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(s.subs))
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		if !h.push(sub, msg) {
			h.logger.Debug("notify: push failed", "session_id", sid)
		}
	}
}

func (h *Hub) push(sub *subscriber, msg Message) bool {
	if err := sub.send(msg); err != nil {
		return false
	}
	if h.observer != nil {
		h.observer.ObservePush()
	}
	return true
}
