package bootstrap

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/telemed-portal/internal/compliance"
	appconfig "github.com/wolfman30/telemed-portal/internal/config"
	"github.com/wolfman30/telemed-portal/internal/prefs"
	"github.com/wolfman30/telemed-portal/internal/session"
	"github.com/wolfman30/telemed-portal/internal/symptoms"
	"github.com/wolfman30/telemed-portal/pkg/logging"
)

// BuildTokenStore persists access tokens in Redis when available.
func BuildTokenStore(redisClient *redis.Client, cfg *appconfig.Config) session.TokenStore {
	if redisClient == nil {
		return session.NewMemoryTokenStore()
	}
	return session.NewRedisTokenStore(redisClient, cfg.SessionTTL)
}

// BuildHistoryStore keeps the symptom check history in Redis when available.
func BuildHistoryStore(redisClient *redis.Client, cfg *appconfig.Config) symptoms.HistoryStore {
	if redisClient == nil {
		return symptoms.NewMemoryHistoryStore(cfg.HistoryLimit)
	}
	return symptoms.NewRedisHistoryStore(redisClient, cfg.HistoryLimit, cfg.HistoryTTL)
}

// BuildPrefsStore keeps bookmarks and reminders in Postgres when available.
func BuildPrefsStore(pool *pgxpool.Pool) prefs.Store {
	if pool == nil {
		return prefs.NewMemoryStore()
	}
	return prefs.NewPostgresStore(pool)
}

// BuildAuditService writes the audit trail through the preference pool, or
// only logs it when no database is configured.
func BuildAuditService(pool *pgxpool.Pool, logger *logging.Logger) *compliance.AuditService {
	if pool == nil {
		return compliance.NewAuditService(nil, logger)
	}
	return compliance.NewAuditService(stdlib.OpenDBFromPool(pool), logger)
}
