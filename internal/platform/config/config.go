package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"
)

// DevAuthSecret signs session tokens when AUTH_SECRET is unset. Local use only.
const DevAuthSecret = "dev-auth-secret-change-in-production"

// MinRateLimitRetention is the longest rate limit window. A shorter retention
// would let the sweep drop timestamps that still count.
const MinRateLimitRetention = time.Minute

// Config captures everything main needs to wire the storefront API.
type Config struct {
	Addr        string
	Environment string
	LogLevel    string
	DatabaseURL string

	Redis     RedisConfig
	Auth      AuthConfig
	OAuth     OAuthConfig
	RateLimit RateLimitConfig

	// TrustedProxies are the peers allowed to set X-Forwarded-For / X-Real-IP.
	TrustedProxies []netip.Prefix
}

// RedisConfig is consumed by internal/platform/redis. An empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AuthConfig holds session token settings and the admin escape hatch.
type AuthConfig struct {
	Secret             string
	SessionTTL         time.Duration
	AdminOverrideEmail string
	SecureCookies      bool
	PasswordResetTTL   time.Duration

	// ResetCleanupInterval paces expiry of in-memory reset tokens.
	ResetCleanupInterval time.Duration
	// PublicURL prefixes reset links logged in local environments.
	PublicURL            string
}

// OAuthConfig describes the delegated identity provider.
type OAuthConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// Enabled reports whether enough settings are present to talk to the provider.
func (c OAuthConfig) Enabled() bool {
	return c.IssuerURL != "" && c.ClientID != "" && c.RedirectURL != ""
}

// RateLimitConfig tunes the limiter's background sweep.
type RateLimitConfig struct {
	SweepInterval time.Duration
	Retention     time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (*Config, error) {
	env := getEnv("STORE_ENV", "local")

	cfg := &Config{
		Addr:        getEnv("STORE_ADDR", ":8080"),
		Environment: env,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Auth: AuthConfig{
			Secret:               os.Getenv("AUTH_SECRET"),
			SessionTTL:           getDuration("SESSION_TTL", 30*24*time.Hour),
			AdminOverrideEmail:   strings.TrimSpace(os.Getenv("ADMIN_OVERRIDE_EMAIL")),
			SecureCookies:        env != "local",
			PasswordResetTTL:     getDuration("PASSWORD_RESET_TTL", time.Hour),
			ResetCleanupInterval: getDuration("PASSWORD_RESET_CLEANUP_INTERVAL", 10*time.Minute),
			PublicURL:            strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:8080"), "/"),
		},
		OAuth: OAuthConfig{
			IssuerURL:    os.Getenv("OAUTH_ISSUER_URL"),
			ClientID:     os.Getenv("OAUTH_CLIENT_ID"),
			ClientSecret: os.Getenv("OAUTH_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("OAUTH_REDIRECT_URL"),
			Scopes:       splitList(getEnv("OAUTH_SCOPES", "openid,profile,email")),
		},
		RateLimit: RateLimitConfig{
			SweepInterval: getDuration("RATELIMIT_SWEEP_INTERVAL", 5*time.Minute),
			Retention:     getDuration("RATELIMIT_RETENTION", time.Hour),
		},
	}

	if cfg.Auth.Secret == "" {
		if env == "production" {
			return nil, fmt.Errorf("AUTH_SECRET must be set in production")
		}
		cfg.Auth.Secret = DevAuthSecret
	}

	if cfg.RateLimit.Retention < MinRateLimitRetention {
		return nil, fmt.Errorf("RATELIMIT_RETENTION must be at least %s, got %s",
			MinRateLimitRetention, cfg.RateLimit.Retention)
	}

	proxies, err := parsePrefixes(os.Getenv("TRUSTED_PROXIES"))
	if err != nil {
		return nil, err
	}
	cfg.TrustedProxies = proxies

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parsePrefixes(raw string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, part := range splitList(raw) {
		if !strings.Contains(part, "/") {
			addr, err := netip.ParseAddr(part)
			if err != nil {
				return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", part, err)
			}
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(part)
		if err != nil {
			return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", part, err)
		}
		prefixes = append(prefixes, prefix)
	}
	return prefixes, nil
}
