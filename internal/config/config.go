package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration.
type Config struct {
	ServerPort         int
	DatabasePath       string
	CORSOrigin         string
	JWTSecret          []byte
	TokenTTL           time.Duration
	RedisURL           string // empty disables the todo-list cache
	CacheTTL           time.Duration
	EventRetentionDays int
	EventPruneSchedule string // standard cron expression
}

// Load loads configuration from environment variables or sets defaults.
// The JWT secret has no default: it must be supplied and be at least 32
// bytes, since it is the sole input to token signature validation.
func Load() (*Config, error) {
	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT %q: %w", portStr, err)
	}

	secret := os.Getenv("JWT_SECRET")
	if len(secret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be set and at least 32 bytes, got %d", len(secret))
	}

	ttlHours, err := strconv.Atoi(getEnv("TOKEN_TTL_HOURS", "24"))
	if err != nil || ttlHours <= 0 {
		return nil, fmt.Errorf("invalid TOKEN_TTL_HOURS")
	}

	cacheTTL, err := strconv.Atoi(getEnv("CACHE_TTL_SEC", "300"))
	if err != nil || cacheTTL <= 0 {
		return nil, fmt.Errorf("invalid CACHE_TTL_SEC")
	}

	retentionDays, err := strconv.Atoi(getEnv("EVENT_RETENTION_DAYS", "30"))
	if err != nil || retentionDays <= 0 {
		return nil, fmt.Errorf("invalid EVENT_RETENTION_DAYS")
	}

	return &Config{
		ServerPort:         port,
		DatabasePath:       getEnv("DATABASE_PATH", "./tasklist.db"),
		CORSOrigin:         getEnv("CORS_ORIGIN", "http://localhost:3000"),
		JWTSecret:          []byte(secret),
		TokenTTL:           time.Duration(ttlHours) * time.Hour,
		RedisURL:           os.Getenv("REDIS_URL"),
		CacheTTL:           time.Duration(cacheTTL) * time.Second,
		EventRetentionDays: retentionDays,
		EventPruneSchedule: getEnv("EVENT_PRUNE_SCHEDULE", "0 3 * * *"),
	}, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
