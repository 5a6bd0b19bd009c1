// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"time"

	"github.com/olegiv/evreg-go/internal/config"
)

// NewFromConfig creates a cache backend based on the application
// configuration: Redis when EVREG_REDIS_URL is set, in-memory otherwise.
func NewFromConfig(cfg *config.Config) (Cache, error) {
	ttl := time.Duration(cfg.CacheTTL) * time.Second

	if cfg.UseRedisCache() {
		return NewRedisCache(cfg.RedisURL, cfg.CachePrefix, ttl)
	}
	return NewMemoryCache(ttl), nil
}
