// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DBPath != "./data/evreg.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "./data/evreg.db")
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want 8080", cfg.ServerPort)
	}
	if cfg.SweepSchedule != "@hourly" {
		t.Errorf("SweepSchedule = %q, want %q", cfg.SweepSchedule, "@hourly")
	}
	if cfg.UseRedisCache() {
		t.Error("UseRedisCache() = true with no EVREG_REDIS_URL set")
	}
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false, want true by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("EVREG_SERVER_HOST", "0.0.0.0")
	t.Setenv("EVREG_SERVER_PORT", "9090")
	t.Setenv("EVREG_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("EVREG_ENV", "production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := cfg.ServerAddr(); got != "0.0.0.0:9090" {
		t.Errorf("ServerAddr() = %q, want %q", got, "0.0.0.0:9090")
	}
	if !cfg.UseRedisCache() {
		t.Error("UseRedisCache() = false with EVREG_REDIS_URL set")
	}
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true in production")
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero rate limit", "EVREG_API_RATE_LIMIT", "0"},
		{"burst below rate", "EVREG_API_RATE_BURST", "1"},
		{"zero retention", "EVREG_AUDIT_RETENTION_DAYS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%s: expected error, got nil", tt.key, tt.value)
			}
		})
	}
}
