// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package aggregate recomputes the per-user registrations projection from
// the users, participations and events collections. The projection is a
// point-in-time view: event titles are snapshotted at rebuild time and
// the whole stored collection is replaced atomically on every rebuild.
package aggregate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/evreg-go/internal/cache"
	"github.com/olegiv/evreg-go/internal/model"
	"github.com/olegiv/evreg-go/internal/store"
)

// Rebuilder recomputes the RegistrationSummary projection.
type Rebuilder struct {
	db      *sql.DB
	queries *store.Queries
	cache   cache.Cache
	logger  *slog.Logger
}

// New creates a rebuilder. The cache may be nil; when set, the cached
// projection entry is invalidated after every successful rebuild.
func New(db *sql.DB, c cache.Cache, logger *slog.Logger) *Rebuilder {
	return &Rebuilder{
		db:      db,
		queries: store.New(db),
		cache:   c,
		logger:  logger,
	}
}

// RebuildUserRegistrations recomputes the projection from the current
// base collections and replaces the stored one in a single transaction.
//
// Invoked after every participation mutation and after cascade cleanup;
// idempotent over unchanged data, so redundant invocations are harmless.
// Participations whose event cannot be resolved are dropped silently:
// the integrity engine already owns their removal, this is a defensive
// no-op rather than a reported error. Users with the admin role never
// appear in the projection. An error is returned only when one of the
// source collections cannot be read or the replace itself fails.
func (r *Rebuilder) RebuildUserRegistrations(ctx context.Context) ([]model.RegistrationSummary, error) {
	users, err := r.queries.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}
	events, err := r.queries.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading events: %w", err)
	}
	parts, err := r.queries.ListParticipations(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading participations: %w", err)
	}

	eventsByID := make(map[int64]model.Event, len(events))
	for _, e := range events {
		eventsByID[e.ID] = e
	}

	// Stable grouping: ListParticipations orders by id, and duplicates
	// for the same (user, event) pair are kept as-is.
	byUser := make(map[int64][]model.Participation, len(users))
	for _, p := range parts {
		byUser[p.UserID] = append(byUser[p.UserID], p)
	}

	now := time.Now().UTC()
	summaries := make([]model.RegistrationSummary, 0, len(users))
	for _, u := range users {
		if u.Role != model.RoleUser {
			continue
		}

		registered := make([]model.RegisteredEvent, 0, len(byUser[u.ID]))
		for _, p := range byUser[u.ID] {
			if !p.EventID.Valid {
				continue
			}
			event, ok := eventsByID[p.EventID.Int64]
			if !ok {
				continue
			}

			entry := model.RegisteredEvent{
				EventID:          event.ID,
				EventTitle:       event.Title,
				Status:           p.Status,
				RegistrationDate: p.RegistrationDate,
			}
			// Attendance display is meaningless unless the user is still
			// in Registered status.
			if p.Status == model.StatusRegistered && p.Attendance.Valid {
				attendance := p.Attendance.String
				entry.Attendance = &attendance
			}
			registered = append(registered, entry)
		}

		summaries = append(summaries, model.RegistrationSummary{
			UserID:             u.ID,
			UserName:           u.Name,
			UserEmail:          u.Email,
			RegisteredEvents:   registered,
			TotalRegistrations: len(registered),
			RebuiltAt:          now,
		})
	}

	if err := store.ReplaceRegistrationSummaries(ctx, r.db, summaries); err != nil {
		return nil, fmt.Errorf("replacing registration summaries: %w", err)
	}

	r.invalidateCache(ctx)

	r.logger.Info("rebuilt user registrations projection",
		"users", len(summaries),
		"participations", len(parts),
	)

	return summaries, nil
}

// invalidateCache drops the cached projection. A failed invalidation is
// logged but does not fail the rebuild; the entry expires by TTL anyway.
func (r *Rebuilder) invalidateCache(ctx context.Context) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, cache.KeyRegistrations); err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		r.logger.Warn("failed to invalidate registrations cache", "error", err)
	}
}
