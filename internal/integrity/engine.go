// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package integrity maintains referential consistency between
// participations and their parent events. Participations whose event_id
// is NULL or references a deleted event are orphans and must not persist.
//
// The engine holds no state between invocations: every operation reads a
// fresh snapshot and issues compensating deletes, so re-running after a
// partial failure removes only what is still orphaned.
package integrity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/olegiv/evreg-go/internal/store"
)

// Engine detects and removes orphaned participations.
type Engine struct {
	queries *store.Queries
	logger  *slog.Logger
}

// New creates an integrity engine over the given database.
func New(db *sql.DB, logger *slog.Logger) *Engine {
	return &Engine{
		queries: store.New(db),
		logger:  logger,
	}
}

// PurgeParticipationsOfEvent removes every participation referencing the
// given event id. Called synchronously after an event deletion commits.
//
// Cleanup is best-effort, not transactional: a failed delete is logged
// and the scan moves on to the next candidate. ErrNotFound means a
// concurrent writer got there first and counts as already clean.
// The returned count is the number of participations actually removed.
func (e *Engine) PurgeParticipationsOfEvent(ctx context.Context, eventID int64) (int, error) {
	parts, err := e.queries.ListParticipationsByEvent(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("listing participations of event %d: %w", eventID, err)
	}

	removed := 0
	for _, p := range parts {
		if err := e.queries.DeleteParticipation(ctx, p.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			e.logger.Warn("failed to purge participation of deleted event",
				"participation_id", p.ID,
				"event_id", eventID,
				"error", err,
			)
			continue
		}
		removed++
	}

	if len(parts) > 0 {
		e.logger.Info("cascade cleanup completed",
			"event_id", eventID,
			"candidates", len(parts),
			"removed", removed,
		)
	}

	return removed, nil
}

// PurgeAllOrphans performs a full consistency sweep: it loads the event
// id set and all participations once, then removes every participation
// whose event reference is NULL or dangling. O(P+E) with the id set
// built up front; the snapshot is not re-checked mid-sweep.
//
// Idempotent: a second sweep over unchanged data removes nothing. Runs
// at startup, on the cron schedule, and on demand via the admin API.
// An error is returned only when the source collections cannot be read
// at all; per-record delete failures are logged and skipped.
func (e *Engine) PurgeAllOrphans(ctx context.Context) (int, error) {
	eventIDs, err := e.queries.ListEventIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading event ids: %w", err)
	}
	parts, err := e.queries.ListParticipations(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading participations: %w", err)
	}

	removed := 0
	for _, p := range parts {
		if !p.Orphaned(eventIDs) {
			continue
		}
		if err := e.queries.DeleteParticipation(ctx, p.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			e.logger.Warn("failed to purge orphaned participation",
				"participation_id", p.ID,
				"error", err,
			)
			continue
		}
		removed++
	}

	if removed > 0 {
		e.logger.Info("orphan sweep removed participations",
			"removed", removed,
			"scanned", len(parts),
		)
	}

	return removed, nil
}
