package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenPort      string        // ex: ":8645"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Pocket API
	PocketBaseURL     string // versioned API base (ex: https://getpocket.com/v3)
	PocketWebBaseURL  string // web base for the authorize URL (ex: https://getpocket.com)
	PocketConsumerKey string // consumer key attached to every request
	PocketRedirectURI string // OAuth redirect URI

	// Snooze scheduling
	SyncInterval     time.Duration // minimum gap between unforced metadata syncs (default: 1h)
	FallbackInterval time.Duration // re-check interval when no items remain (default: 6h, 0 = disabled)
	StartupGrace     time.Duration // delay before the startup due-check (default: 5m)
	RetryBackoff     time.Duration // delay before retrying a failed wake (default: 1m)
	SettingsFile     string        // optional YAML file with wake-time defaults

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedCIDRS []string // optional, restrict API access to specific IPs/CIDRs
	TrustProxy   bool     // true => trust X-Forwarded-For headers
}

func Load() *Config {
	// Local development convenience; a missing .env is fine.
	_ = godotenv.Load()

	cfg := &Config{
		// Server settings
		ListenPort:      getenv("SNOOZERD_LISTEN_PORT", ":8645"),
		ShutdownTimeout: mustDuration("SNOOZERD_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("SNOOZERD_LOG_LEVEL", "info"),
		PrettyLog: mustBool("SNOOZERD_PRETTY_LOG", true),

		// Pocket API
		PocketBaseURL:     getenv("SNOOZERD_POCKET_BASE_URL", "https://getpocket.com/v3"),
		PocketWebBaseURL:  getenv("SNOOZERD_POCKET_WEB_URL", "https://getpocket.com"),
		PocketConsumerKey: requireEnv("SNOOZERD_POCKET_CONSUMER_KEY"),
		PocketRedirectURI: getenv("SNOOZERD_POCKET_REDIRECT_URI", "https://getpocket.com/auth/verify"),

		// Snooze scheduling
		SyncInterval:     mustDuration("SNOOZERD_SYNC_INTERVAL", time.Hour),
		FallbackInterval: mustDuration("SNOOZERD_FALLBACK_INTERVAL", 6*time.Hour),
		StartupGrace:     mustDuration("SNOOZERD_STARTUP_GRACE", 5*time.Minute),
		RetryBackoff:     mustDuration("SNOOZERD_RETRY_BACKOFF", time.Minute),
		SettingsFile:     getenv("SNOOZERD_SETTINGS_FILE", ""), // Optional, empty = built-in defaults

		// Redis settings
		RedisAddr:             requireEnv("SNOOZERD_REDIS_ADDR"),
		RedisUser:             getenv("SNOOZERD_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("SNOOZERD_REDIS_PASSWORD_REQUIRED", true),
		RedisPassword:         getenv("SNOOZERD_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("SNOOZERD_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedCIDRS: parseAllowedIPs(getenv("SNOOZERD_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("SNOOZERD_TRUST_PROXY", false),
	}

	// Validate Redis password configuration
	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: SNOOZERD_REDIS_PASSWORD is required when SNOOZERD_REDIS_PASSWORD_REQUIRED=true")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		cfgCopy.PocketConsumerKey = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
