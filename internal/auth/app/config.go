package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/hearth/internal/auth/gate"
	"github.com/aussiebroadwan/hearth/internal/auth/ratelimit"
	"github.com/aussiebroadwan/hearth/internal/auth/service"
	"github.com/aussiebroadwan/hearth/pkg/jwtx"
)

// Blacklist backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	SigningKey     string // Required unless SigningKeyFile is set: HMAC key material (raw, "base64:" or "hex:")
	SigningKeyFile string // Optional: file holding the signing key material
	Issuer         string // Optional: issuer claim for tokens (default: hearth-auth)

	AccessTTL        time.Duration // Access credential lifetime (default: 24h)
	RefreshTTL       time.Duration // Refresh credential lifetime (default: 30 days)
	RevokedRetention time.Duration // How long rotated refresh rows are kept for reuse detection (default: 7 days)
	StoreTimeout     time.Duration // Bound on each durable or shared store call (default: 2s)

	BlacklistSweepInterval time.Duration // Blacklist sweep schedule (default: 1h)
	RefreshCleanupInterval time.Duration // Refresh row cleanup schedule (default: 1h)

	RateLimitWindow      time.Duration // Gate rate limit window (default: 60s)
	RateLimitMaxRequests int           // Gate rate limit per window (default: 5)
	PublicPaths          []string      // Paths reachable without a credential
	GatePolicyFile       string        // Optional: YAML file overriding public paths and rate limits
	TrustProxyHeaders    bool          // Key rate limits on X-Forwarded-For (default: false)

	RedisURL         string // Optional: shared counter and blacklist store
	BlacklistBackend string // memory or redis (default: memory)

	AdminUsername string // Optional: seeds an admin on an empty user store
	AdminPassword string

	DatabaseFile        string        // Optional: path to SQLite database file (default: ./auth.db)
	PepperFile          string        // Optional: path to file containing pepper for password hashing (default: ./pepper)
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

// LoadConfig reads the environment, then applies the gate policy file if one
// is configured.
func LoadConfig() (Config, error) {
	cfg := Config{
		SigningKey:     os.Getenv("AUTH_SIGNING_KEY"),
		SigningKeyFile: os.Getenv("AUTH_SIGNING_KEY_FILE"),
		Issuer:         getEnvOrDefault("AUTH_ISSUER", "hearth-auth"),

		AccessTTL:        getEnvDurationOrDefault("AUTH_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL:       getEnvDurationOrDefault("AUTH_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),
		RevokedRetention: getEnvDurationOrDefault("AUTH_REVOKED_RETENTION", service.DefaultRevokedRetention),
		StoreTimeout:     getEnvDurationOrDefault("STORE_TIMEOUT", service.DefaultStoreTimeout),

		BlacklistSweepInterval: getEnvDurationOrDefault("BLACKLIST_SWEEP_INTERVAL", time.Hour),
		RefreshCleanupInterval: getEnvDurationOrDefault("REFRESH_CLEANUP_INTERVAL", time.Hour),

		RateLimitWindow:      getEnvDurationOrDefault("RATELIMIT_WINDOW", ratelimit.DefaultWindow),
		RateLimitMaxRequests: getEnvIntOrDefault("RATELIMIT_MAX_REQUESTS", ratelimit.DefaultMaxRequests),
		PublicPaths:          getEnvListOrDefault("PUBLIC_PATHS", gate.DefaultPublicPaths),
		GatePolicyFile:       os.Getenv("GATE_POLICY_FILE"),
		TrustProxyHeaders:    getEnvBoolOrDefault("TRUST_PROXY_HEADERS", false),

		RedisURL:         os.Getenv("REDIS_URL"),
		BlacklistBackend: strings.ToLower(getEnvOrDefault("BLACKLIST_BACKEND", BackendMemory)),

		AdminUsername: os.Getenv("BOOTSTRAP_ADMIN_USERNAME"),
		AdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),

		DatabaseFile:        getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		PepperFile:          getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	if cfg.GatePolicyFile != "" {
		policy, err := LoadGatePolicy(cfg.GatePolicyFile)
		if err != nil {
			return Config{}, err
		}
		policy.Apply(&cfg)
	}

	return cfg, cfg.Validate()
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	if c.SigningKey == "" && c.SigningKeyFile == "" {
		return errors.New("config: AUTH_SIGNING_KEY or AUTH_SIGNING_KEY_FILE is required")
	}
	switch c.BlacklistBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			return errors.New("config: BLACKLIST_BACKEND=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("config: unknown BLACKLIST_BACKEND %q", c.BlacklistBackend)
	}
	if (c.AdminUsername == "") != (c.AdminPassword == "") {
		return errors.New("config: BOOTSTRAP_ADMIN_USERNAME and BOOTSTRAP_ADMIN_PASSWORD must be set together")
	}
	return nil
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

	if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, ok := parseDuration(value); ok {
		return d
	}
	slog.Warn("ignoring invalid duration", "key", key, "value", value, "default", defaultValue.String())
	return defaultValue
}

// parseDuration accepts Go syntax ("90s", "1h") or a bare integer of
// milliseconds. Non-positive values are rejected.
func parseDuration(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration, true
	}

	if ms, err := strconv.ParseInt(value, 10, 64); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond, true
	}

	return 0, false
}
