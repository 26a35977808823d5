package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Secret    string // Required: shared HMAC secret for token signing
	Algorithm string // Optional: JWT signing algorithm (default: HS256)
	Issuer    string // Optional: issuer claim for tokens (default: atlas-readiness)

	UserTokenTTL  time.Duration // Optional: dashboard token lifetime (default: 30m)
	DatabaseFile  string        // Optional: path to SQLite database file (default: ./readiness.db)
	DenylistExtra []string      // Optional: extra denied breakdown-key substrings, comma-separated

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Audit pruning interval (default: 1h)
	AuditRetention       time.Duration // Audit entry retention window (default: 90 days)
	AuditQueueSize       int           // Audit recorder queue size (default: 256)
}

func LoadConfig() Config {
	// A missing .env file is fine; real deployments set the environment
	// directly.
	_ = godotenv.Load()

	cfg := Config{
		Secret:               os.Getenv("READINESS_SECRET"),
		Algorithm:            getEnvOrDefault("READINESS_ALGORITHM", "HS256"),
		Issuer:               getEnvOrDefault("READINESS_ISSUER", "atlas-readiness"),
		UserTokenTTL:         getEnvDurationOrDefault("READINESS_USER_TOKEN_TTL", 30*time.Minute),
		DatabaseFile:         getEnvOrDefault("READINESS_DATABASE_FILE", "readiness.db"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		AuditRetention:       getEnvDurationOrDefault("AUDIT_RETENTION", 90*24*time.Hour),
		AuditQueueSize:       getEnvIntOrDefault("AUDIT_QUEUE_SIZE", 256),
	}

	if extra := os.Getenv("READINESS_DENYLIST_EXTRA"); extra != "" {
		for _, part := range strings.Split(extra, ",") {
			if part = strings.TrimSpace(part); part != "" {
				cfg.DenylistExtra = append(cfg.DenylistExtra, part)
			}
		}
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Accepts duration strings ("1h", "30m") or plain integer minutes.
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
