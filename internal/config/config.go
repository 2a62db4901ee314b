package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/notifyhub/tenantq/internal/domain"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only the two database URLs are required.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Control-plane database (tenant metadata)
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Base template for tenant databases: host and admin credentials are
	// fixed, the database name varies per tenant. Its own database is the
	// cluster's maintenance database used for CREATE/DROP DATABASE.
	TenantDatabaseURL string
	TenantDBMaxConns  int32
	TenantDBMinConns  int32

	// Claim batching: the poll endpoint caps count at MaxClaimBatch.
	MaxClaimBatch int

	// Per-tenant enqueue rate limits, tokens per second by tier.
	TierRates map[domain.Tier]int
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	tenantURL := os.Getenv("TENANT_DATABASE_URL")
	if tenantURL == "" {
		return nil, fmt.Errorf("TENANT_DATABASE_URL is required: %w", domain.ErrTenantNotConfigured)
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 2)),

		TenantDatabaseURL: tenantURL,
		TenantDBMaxConns:  int32(getInt("TENANT_DB_MAX_CONNS", 5)),
		TenantDBMinConns:  int32(getInt("TENANT_DB_MIN_CONNS", 1)),

		MaxClaimBatch: getInt("MAX_CLAIM_BATCH", 100),

		TierRates: map[domain.Tier]int{
			domain.TierSmall:  getInt("RATE_LIMIT_SMALL", 10),
			domain.TierMedium: getInt("RATE_LIMIT_MEDIUM", 50),
			domain.TierLarge:  getInt("RATE_LIMIT_LARGE", 200),
		},
	}, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
