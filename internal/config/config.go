package config

import (
	"fmt"
	"log"
	"os"
	"time"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env                string
	HTTPPort           string
	BackendAPIURL      string
	BackendAPIToken    string
	BackendTimeout     time.Duration
	RedisAddr          string
	RosterCacheBackend string
	RosterCacheTTL     time.Duration
	SessionIdleTTL     time.Duration
	RateLimitPerMin    int
	MaxUploadBytes     int64
}

// Load returns application config populated from environment variables with sensible defaults.
func Load() App {
	return App{
		Env:                getEnv("APP_ENV", "dev"),
		HTTPPort:           getEnv("HTTP_PORT", "8082"),
		BackendAPIURL:      getEnv("BACKEND_API_URL", "http://localhost:5000"),
		BackendAPIToken:    getEnv("BACKEND_API_TOKEN", ""),
		BackendTimeout:     durationEnv("BACKEND_TIMEOUT", 15*time.Second),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RosterCacheBackend: getEnv("ROSTER_CACHE_BACKEND", "memory"),
		RosterCacheTTL:     durationEnv("ROSTER_CACHE_TTL", 10*time.Minute),
		SessionIdleTTL:     durationEnv("SESSION_IDLE_TTL", 2*time.Hour),
		RateLimitPerMin:    intEnv("RATE_LIMIT_PER_MIN", 120),
		MaxUploadBytes:     int64(intEnv("MAX_UPLOAD_BYTES", 10<<20)),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Printf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}
