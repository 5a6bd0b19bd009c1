// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service provides business logic shared across handlers,
// including the audit trail for data mutations and consistency actions.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/olegiv/evreg-go/internal/store"
)

// Audit levels
const (
	AuditLevelInfo    = "info"
	AuditLevelWarning = "warning"
	AuditLevelError   = "error"
)

// Audit categories
const (
	AuditCategoryUser          = "user"
	AuditCategoryEvent         = "event"
	AuditCategoryParticipation = "participation"
	AuditCategoryIntegrity     = "integrity"
	AuditCategoryAggregate     = "aggregate"
	AuditCategorySystem        = "system"
)

// AuditService records audit trail entries.
type AuditService struct {
	queries *store.Queries
}

// NewAuditService creates a new AuditService.
func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{
		queries: store.New(db),
	}
}

// Log creates a new audit trail entry. Failures are logged but never
// escalated: auditing must not break the mutation it describes.
func (s *AuditService) Log(ctx context.Context, level, category, message string, userID *int64, metadata map[string]any) error {
	var nullUserID sql.NullInt64
	if userID != nil {
		nullUserID = sql.NullInt64{Int64: *userID, Valid: true}
	}

	metadataJSON := "{}"
	if metadata != nil {
		jsonBytes, err := json.Marshal(metadata)
		if err == nil {
			metadataJSON = string(jsonBytes)
		}
	}

	_, err := s.queries.CreateAuditEvent(ctx, store.CreateAuditEventParams{
		Level:     level,
		Category:  category,
		Message:   message,
		UserID:    nullUserID,
		Metadata:  metadataJSON,
		CreatedAt: time.Now(),
	})
	if err != nil {
		log.Printf("Failed to record audit event: %v", err)
		return err
	}

	return nil
}

// LogInfo records an info-level audit entry. Warning and error entries
// are not written explicitly: they arrive through the slog handler that
// mirrors WARN+ records into the audit table.
func (s *AuditService) LogInfo(ctx context.Context, category, message string, userID *int64, metadata map[string]any) error {
	return s.Log(ctx, AuditLevelInfo, category, message, userID, metadata)
}

// DeleteOldEntries removes audit entries older than the given duration.
func (s *AuditService) DeleteOldEntries(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	return s.queries.DeleteOldAuditEvents(ctx, cutoff)
}
