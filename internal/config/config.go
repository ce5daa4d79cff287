package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	TimeZone      string

	// Telemedicine backend
	BackendBaseURL    string
	BackendTimeout    time.Duration
	BackendRetryPause time.Duration

	// Session storage
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	SessionTTL    time.Duration
	// SessionIdleTimeout evicts in-memory state of sessions without requests.
	SessionIdleTimeout time.Duration
	SessionCookie      string
	CookieSecure       bool
	HistoryLimit       int
	HistoryTTL         time.Duration

	// Preference store (bookmarks, medication reminders)
	DatabaseURL string

	// Widgets
	NotificationPollInterval time.Duration
	SearchDebounce           time.Duration
	SearchMinQueryLength     int

	CORSAllowedOrigins []string
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		TimeZone:      getEnv("PORTAL_TIMEZONE", "Europe/Berlin"),

		BackendBaseURL:    strings.TrimRight(getEnv("BACKEND_BASE_URL", "http://localhost:8000/api"), "/"),
		BackendTimeout:    getEnvAsDuration("BACKEND_TIMEOUT", 15*time.Second),
		BackendRetryPause: getEnvAsDuration("BACKEND_RETRY_PAUSE", 200*time.Millisecond),

		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisTLS:           getEnvAsBool("REDIS_TLS", false),
		SessionTTL:         getEnvAsDuration("SESSION_TTL", 7*24*time.Hour),
		SessionIdleTimeout: getEnvAsDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		SessionCookie:      getEnv("SESSION_COOKIE", "portal_sid"),
		CookieSecure:       getEnvAsBool("COOKIE_SECURE", false),
		HistoryLimit:       getEnvAsInt("SYMPTOM_HISTORY_LIMIT", 5),
		HistoryTTL:         getEnvAsDuration("SYMPTOM_HISTORY_TTL", 90*24*time.Hour),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		NotificationPollInterval: getEnvAsDuration("NOTIFICATION_POLL_INTERVAL", 30*time.Second),
		SearchDebounce:           getEnvAsDuration("SEARCH_DEBOUNCE", 500*time.Millisecond),
		SearchMinQueryLength:     getEnvAsInt("SEARCH_MIN_QUERY_LENGTH", 3),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		RateLimitPerSecond: getEnvAsFloat("RATE_LIMIT_PER_SECOND", 20),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 40),
	}
}

// LoadDotEnv loads variables from the given .env files (default ".env") without
// overriding variables already present in the environment. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// IsProduction reports whether the portal runs with production settings.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Location resolves TimeZone, falling back to UTC when it is unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
