// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// simpleOKHandler returns 200 OK.
var simpleOKHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func executeFrom(handler http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	req.RemoteAddr = ip
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestRateLimiterAllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(1, 3)
	handler := rl.Middleware()(simpleOKHandler)

	for i := 0; i < 3; i++ {
		if w := executeFrom(handler, "10.0.0.1:1234"); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	handler := rl.Middleware()(simpleOKHandler)

	executeFrom(handler, "10.0.0.2:1234")
	executeFrom(handler, "10.0.0.2:1234")

	w := executeFrom(handler, "10.0.0.2:1234")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}

	var apiErr APIError
	if err := json.NewDecoder(w.Body).Decode(&apiErr); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if apiErr.Error.Code != "rate_limit_exceeded" {
		t.Errorf("error code = %q, want rate_limit_exceeded", apiErr.Error.Code)
	}
}

func TestRateLimiterIsolatesClients(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	handler := rl.Middleware()(simpleOKHandler)

	executeFrom(handler, "10.0.0.3:1234")
	if w := executeFrom(handler, "10.0.0.3:1234"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request from same ip: status = %d, want 429", w.Code)
	}

	if w := executeFrom(handler, "10.0.0.4:1234"); w.Code != http.StatusOK {
		t.Fatalf("request from other ip: status = %d, want 200", w.Code)
	}
}

func TestGetClientIPHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:5555"

	if got := getClientIP(req); got != "192.168.1.1:5555" {
		t.Errorf("remote addr fallback = %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := getClientIP(req); got != "203.0.113.7" {
		t.Errorf("x-forwarded-for = %q, want first entry", got)
	}

	req.Header.Set("X-Real-IP", "198.51.100.2")
	if got := getClientIP(req); got != "198.51.100.2" {
		t.Errorf("x-real-ip = %q, want 198.51.100.2", got)
	}
}

func TestLimiterCacheReset(t *testing.T) {
	lc := newLimiterCache[string](1, 1)
	lc.get("a")
	lc.get("b")

	if lc.clearIfExceeds(5) {
		t.Error("cache cleared below max size")
	}
	if !lc.clearIfExceeds(1) {
		t.Error("cache not cleared above max size")
	}
	if len(lc.limiters) != 0 {
		t.Errorf("limiters after clear = %d, want 0", len(lc.limiters))
	}
}
