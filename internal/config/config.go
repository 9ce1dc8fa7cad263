package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds service configuration.
type Config struct {
	StoreBackend        string // "memory" or "postgres"
	DatabaseURL         string
	ServerAddr          string
	TokenTTL            time.Duration
	SessionCookieName   string
	SessionCookieSecure bool
	BootstrapAdmin      string
	BootstrapPassword   string
	AuditSigningKeyHex  string
}

// Load reads configuration from environment.
func Load() (*Config, error) {
	backend := getenv("STORE_BACKEND", "memory")
	if backend != "memory" && backend != "postgres" {
		return nil, fmt.Errorf("invalid STORE_BACKEND %q: want memory or postgres", backend)
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		user := getenv("POSTGRES_USER", "settlement_hub")
		pass := getenv("POSTGRES_PASSWORD", "settlement_hub_pass")
		db := getenv("POSTGRES_DB", "settlement_hub")
		host := getenv("POSTGRES_HOST", "localhost")
		port := getenv("POSTGRES_PORT", "5432")
		sslmode := getenv("DATABASE_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, sslmode)
	}
	addr := getenv("SERVER_ADDR", "0.0.0.0:8080")
	ttl := parseDuration(getenv("TOKEN_TTL", "24h"), 24*time.Hour)
	cookieName := getenv("SESSION_COOKIE_NAME", "settlement_hub_session")
	cookieSecure := parseBool(getenv("SESSION_COOKIE_SECURE", "false"), false)

	return &Config{
		StoreBackend:        backend,
		DatabaseURL:         dsn,
		ServerAddr:          addr,
		TokenTTL:            ttl,
		SessionCookieName:   cookieName,
		SessionCookieSecure: cookieSecure,
		BootstrapAdmin:      os.Getenv("BOOTSTRAP_ADMIN_USERNAME"),
		BootstrapPassword:   os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		AuditSigningKeyHex:  os.Getenv("AUDIT_SIGNING_KEY"),
	}, nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}

func parseBool(val string, def bool) bool {
	if val == "" {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return b
}
