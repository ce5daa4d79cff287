package symptoms

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// DefaultHistoryLimit is the number of checks kept per patient.
const DefaultHistoryLimit = 5

// Entry is one completed symptom check.
type Entry struct {
	ID            string    `json:"id"`
	Description   string    `json:"description"`
	Category      string    `json:"symptoms_category"`
	Severity      Severity  `json:"severity"`
	Duration      string    `json:"duration"`
	Emergency     bool      `json:"emergency"`
	ResultMessage string    `json:"result_message"`
	Disclaimer    string    `json:"disclaimer"`
	CheckedAt     time.Time `json:"checked_at"`
}

// HistoryStore keeps the most recent checks per patient, newest first.
type HistoryStore interface {
	Append(ctx context.Context, userID int64, e Entry) error
	List(ctx context.Context, userID int64) ([]Entry, error)
	Clear(ctx context.Context, userID int64) error
}

// RedisHistoryStore stores history as a capped Redis list.
type RedisHistoryStore struct {
	redis  *redis.Client
	limit  int
	ttl    time.Duration
	tracer trace.Tracer
}

func NewRedisHistoryStore(client *redis.Client, limit int, ttl time.Duration) *RedisHistoryStore {
	if client == nil {
		panic("symptoms: redis client cannot be nil")
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &RedisHistoryStore{
		redis:  client,
		limit:  limit,
		ttl:    ttl,
		tracer: otel.Tracer("portal.internal.symptoms.history"),
	}
}

func (s *RedisHistoryStore) Append(ctx context.Context, userID int64, e Entry) error {
	ctx, span := s.tracer.Start(ctx, "symptoms.append_history")
	defer span.End()

	data, err := json.Marshal(e)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("symptoms: marshal history entry: %w", err)
	}
	key := historyKey(userID)
	_, err = s.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, key, data)
		p.LTrim(ctx, key, 0, int64(s.limit-1))
		if s.ttl > 0 {
			p.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("symptoms: persist history: %w", err)
	}
	return nil
}

func (s *RedisHistoryStore) List(ctx context.Context, userID int64) ([]Entry, error) {
	ctx, span := s.tracer.Start(ctx, "symptoms.load_history")
	defer span.End()

	raw, err := s.redis.LRange(ctx, historyKey(userID), 0, int64(s.limit-1)).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("symptoms: load history: %w", err)
	}
	out := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("symptoms: decode history: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *RedisHistoryStore) Clear(ctx context.Context, userID int64) error {
	ctx, span := s.tracer.Start(ctx, "symptoms.clear_history")
	defer span.End()

	if err := s.redis.Del(ctx, historyKey(userID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("symptoms: clear history: %w", err)
	}
	return nil
}

func historyKey(userID int64) string {
	return fmt.Sprintf("portal:symptoms:%d:history", userID)
}

// MemoryHistoryStore is the in-process HistoryStore.
type MemoryHistoryStore struct {
	limit int

	mu      sync.Mutex
	entries map[int64][]Entry
}

func NewMemoryHistoryStore(limit int) *MemoryHistoryStore {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &MemoryHistoryStore{limit: limit, entries: make(map[int64][]Entry)}
}

func (s *MemoryHistoryStore) Append(_ context.Context, userID int64, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append([]Entry{e}, s.entries[userID]...)
	if len(list) > s.limit {
		list = list[:s.limit]
	}
	s.entries[userID] = list
	return nil
}

func (s *MemoryHistoryStore) List(_ context.Context, userID int64) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry{}, s.entries[userID]...), nil
}

func (s *MemoryHistoryStore) Clear(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
	return nil
}
