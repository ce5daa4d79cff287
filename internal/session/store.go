package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// TokenKey is the per-session storage key of the access token.
const TokenKey = "access_token"

// TokenStore persists the access token of each browser session. It is the
// server-side stand-in for the browser's local storage; nothing but the token
// is persisted.
type TokenStore interface {
	Get(ctx context.Context, sessionID string) (string, error)
	Set(ctx context.Context, sessionID, token string) error
	Delete(ctx context.Context, sessionID string) error
}

// RedisTokenStore keeps tokens in Redis with a sliding TTL.
type RedisTokenStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewRedisTokenStore creates a Redis-backed token store.
func NewRedisTokenStore(client *redis.Client, ttl time.Duration) *RedisTokenStore {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisTokenStore{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("portal.internal.session.tokens"),
	}
}

func (s *RedisTokenStore) Get(ctx context.Context, sessionID string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "session.get_token")
	defer span.End()

	token, err := s.redis.Get(ctx, tokenKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("session: load token: %w", err)
	}
	if err := s.redis.Expire(ctx, tokenKey(sessionID), s.ttl).Err(); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("session: refresh token ttl: %w", err)
	}
	return token, nil
}

func (s *RedisTokenStore) Set(ctx context.Context, sessionID, token string) error {
	ctx, span := s.tracer.Start(ctx, "session.set_token")
	defer span.End()

	if err := s.redis.Set(ctx, tokenKey(sessionID), token, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: persist token: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Delete(ctx context.Context, sessionID string) error {
	ctx, span := s.tracer.Start(ctx, "session.delete_token")
	defer span.End()

	if err := s.redis.Del(ctx, tokenKey(sessionID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: delete token: %w", err)
	}
	return nil
}

func tokenKey(sessionID string) string {
	return fmt.Sprintf("portal:session:%s:%s", sessionID, TokenKey)
}

// MemoryTokenStore is an in-process TokenStore for development and tests.
type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]string
}

// NewMemoryTokenStore creates an empty in-memory token store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]string)}
}

func (s *MemoryTokenStore) Get(_ context.Context, sessionID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens[sessionID], nil
}

func (s *MemoryTokenStore) Set(_ context.Context, sessionID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[sessionID] = token
	return nil
}

func (s *MemoryTokenStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, sessionID)
	return nil
}
