// Package config reads process configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL    string
	ServerPort     string
	JWTSecret      string
	AllowedOrigins string
	RedisURL       string
	IdempotencyTTL time.Duration
	Env            string
	// SecureCookies controls the Secure flag of the auth cookie.
	SecureCookies bool
}

// Load reads .env (if present) and the environment. Variables already set in
// the environment win over .env.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	cfg := &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		ServerPort:     getenv("SERVER_PORT", "8080"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
		RedisURL:       os.Getenv("REDIS_URL"),
		IdempotencyTTL: 24 * time.Hour,
		Env:            getenv("APP_ENV", "production"),
		SecureCookies:  true,
	}

	if v := os.Getenv("IDEMPOTENCY_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			return nil, fmt.Errorf("invalid IDEMPOTENCY_TTL %q: must be a positive duration like 24h", v)
		}
		cfg.IdempotencyTTL = ttl
	}
	if v := os.Getenv("SECURE_COOKIES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SECURE_COOKIES %q: %w", v, err)
		}
		cfg.SecureCookies = b
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	return cfg, nil
}

// RequireJWTSecret is called by entry points that issue tokens.
func (c *Config) RequireJWTSecret() error {
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be set and at least 16 characters")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
