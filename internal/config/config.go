// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath     string `env:"EVREG_DB_PATH" envDefault:"./data/evreg.db"`
	ServerHost string `env:"EVREG_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"EVREG_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"EVREG_ENV" envDefault:"development"`
	LogLevel   string `env:"EVREG_LOG_LEVEL" envDefault:"info"`

	// Cache configuration
	RedisURL    string `env:"EVREG_REDIS_URL"`                       // Optional Redis URL for distributed caching
	CachePrefix string `env:"EVREG_CACHE_PREFIX" envDefault:"evreg:"` // Redis key prefix
	CacheTTL    int    `env:"EVREG_CACHE_TTL" envDefault:"3600"`     // Default cache TTL in seconds

	// API rate limiting (requests per second per client IP)
	APIRateLimit int `env:"EVREG_API_RATE_LIMIT" envDefault:"20"`
	APIRateBurst int `env:"EVREG_API_RATE_BURST" envDefault:"40"`

	// Integrity sweep schedule (cron expression) for the safety-net
	// orphan sweep behind the synchronous cascade cleanup.
	SweepSchedule string `env:"EVREG_SWEEP_SCHEDULE" envDefault:"@hourly"`

	// Audit log retention in days. Entries older than this are pruned daily.
	AuditRetentionDays int `env:"EVREG_AUDIT_RETENTION_DAYS" envDefault:"90"`

	// Seeding configuration
	DoSeed bool `env:"EVREG_DO_SEED" envDefault:"false"` // Enable demo data seeding
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.APIRateLimit <= 0 {
		return nil, fmt.Errorf("EVREG_API_RATE_LIMIT must be positive, got %d", cfg.APIRateLimit)
	}
	if cfg.APIRateBurst < cfg.APIRateLimit {
		return nil, fmt.Errorf("EVREG_API_RATE_BURST must be >= EVREG_API_RATE_LIMIT")
	}
	if cfg.AuditRetentionDays <= 0 {
		return nil, fmt.Errorf("EVREG_AUDIT_RETENTION_DAYS must be positive, got %d", cfg.AuditRetentionDays)
	}

	return cfg, nil
}
