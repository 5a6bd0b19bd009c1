// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a custom slog handler that integrates with the
// audit trail. It forwards logs at WARN level and above to the
// database-backed audit table so cleanup failures are never lost.
package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/olegiv/evreg-go/internal/service"
	"github.com/olegiv/evreg-go/internal/store"
)

// AuditLogHandler is a slog.Handler that wraps another handler and also
// writes WARN and ERROR level logs to the audit table.
type AuditLogHandler struct {
	inner   slog.Handler
	queries *store.Queries
	level   slog.Level // Minimum level to forward to the audit table (default: WARN)
}

// NewAuditLogHandler creates a new AuditLogHandler that wraps the given handler.
func NewAuditLogHandler(inner slog.Handler, db *sql.DB) *AuditLogHandler {
	return &AuditLogHandler{
		inner:   inner,
		queries: store.New(db),
		level:   slog.LevelWarn,
	}
}

// Enabled implements slog.Handler.
func (h *AuditLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *AuditLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	if r.Level >= h.level {
		h.writeToAuditLog(r)
	}

	return nil
}

// WithAttrs implements slog.Handler.
func (h *AuditLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AuditLogHandler{
		inner:   h.inner.WithAttrs(attrs),
		queries: h.queries,
		level:   h.level,
	}
}

// WithGroup implements slog.Handler.
func (h *AuditLogHandler) WithGroup(name string) slog.Handler {
	return &AuditLogHandler{
		inner:   h.inner.WithGroup(name),
		queries: h.queries,
		level:   h.level,
	}
}

// writeToAuditLog writes a log record to the audit table.
// A background context is used so the entry is recorded even when the
// request context has been cancelled.
func (h *AuditLogHandler) writeToAuditLog(r slog.Record) {
	_, _ = h.queries.CreateAuditEvent(context.Background(), store.CreateAuditEventParams{
		Level:     slogLevelToAuditLevel(r.Level),
		Category:  extractCategory(r),
		Message:   r.Message,
		UserID:    sql.NullInt64{}, // No user context available from slog
		Metadata:  extractMetadata(r),
		CreatedAt: r.Time,
	})
}

// slogLevelToAuditLevel converts a slog.Level to an audit level.
func slogLevelToAuditLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return service.AuditLevelError
	case level >= slog.LevelWarn:
		return service.AuditLevelWarning
	default:
		return service.AuditLevelInfo
	}
}

// extractCategory looks for a "category" attribute, falling back to an
// inference from the message text.
func extractCategory(r slog.Record) string {
	var category string

	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "category" {
			category = a.Value.String()
			return false
		}
		return true
	})

	if category != "" {
		return category
	}

	msg := strings.ToLower(r.Message)
	switch {
	case strings.Contains(msg, "orphan") || strings.Contains(msg, "purge") || strings.Contains(msg, "sweep"):
		return service.AuditCategoryIntegrity
	case strings.Contains(msg, "rebuild") || strings.Contains(msg, "summary") || strings.Contains(msg, "projection"):
		return service.AuditCategoryAggregate
	case strings.Contains(msg, "participation"):
		return service.AuditCategoryParticipation
	case strings.Contains(msg, "event"):
		return service.AuditCategoryEvent
	case strings.Contains(msg, "user"):
		return service.AuditCategoryUser
	default:
		return service.AuditCategorySystem
	}
}

// extractMetadata collects all log attributes into a JSON string.
func extractMetadata(r slog.Record) string {
	if r.NumAttrs() == 0 {
		return "{}"
	}

	attrs := make(map[string]string, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "category" {
			return true // Already extracted
		}
		attrs[a.Key] = a.Value.String()
		return true
	})

	jsonBytes, err := json.Marshal(attrs)
	if err != nil {
		return "{}"
	}
	return string(jsonBytes)
}
