// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/olegiv/evreg-go/internal/model"
)

// ListRegistrationSummaries returns the stored projection ordered by user id.
func (q *Queries) ListRegistrationSummaries(ctx context.Context) ([]model.RegistrationSummary, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT user_id, user_name, user_email, registered_events, total_registrations, rebuilt_at
		 FROM user_registrations ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list registration summaries: %w", err)
	}
	defer rows.Close()

	var summaries []model.RegistrationSummary
	for rows.Next() {
		var s model.RegistrationSummary
		var eventsJSON string
		if err := rows.Scan(&s.UserID, &s.UserName, &s.UserEmail, &eventsJSON, &s.TotalRegistrations, &s.RebuiltAt); err != nil {
			return nil, fmt.Errorf("scan registration summary: %w", err)
		}
		if err := json.Unmarshal([]byte(eventsJSON), &s.RegisteredEvents); err != nil {
			return nil, fmt.Errorf("decode registered events for user %d: %w", s.UserID, err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// GetRegistrationSummary returns the stored projection entry for one user,
// or ErrNotFound.
func (q *Queries) GetRegistrationSummary(ctx context.Context, userID int64) (model.RegistrationSummary, error) {
	var s model.RegistrationSummary
	var eventsJSON string
	err := q.db.QueryRowContext(ctx,
		`SELECT user_id, user_name, user_email, registered_events, total_registrations, rebuilt_at
		 FROM user_registrations WHERE user_id = ?`, userID).
		Scan(&s.UserID, &s.UserName, &s.UserEmail, &eventsJSON, &s.TotalRegistrations, &s.RebuiltAt)
	if err != nil {
		return model.RegistrationSummary{}, notFoundIfNoRows(err)
	}
	if err := json.Unmarshal([]byte(eventsJSON), &s.RegisteredEvents); err != nil {
		return model.RegistrationSummary{}, fmt.Errorf("decode registered events for user %d: %w", s.UserID, err)
	}
	return s, nil
}

// ReplaceRegistrationSummaries swaps the entire stored projection for the
// given one inside a single transaction. A full replace, never a patch:
// users who lost all participations must not leave stale entries behind.
func ReplaceRegistrationSummaries(ctx context.Context, db *sql.DB, summaries []model.RegistrationSummary) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_registrations`); err != nil {
		return fmt.Errorf("clear registration summaries: %w", err)
	}

	for _, s := range summaries {
		eventsJSON, err := json.Marshal(s.RegisteredEvents)
		if err != nil {
			return fmt.Errorf("encode registered events for user %d: %w", s.UserID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_registrations (user_id, user_name, user_email, registered_events, total_registrations, rebuilt_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			s.UserID, s.UserName, s.UserEmail, string(eventsJSON), s.TotalRegistrations, s.RebuiltAt,
		); err != nil {
			return fmt.Errorf("insert registration summary for user %d: %w", s.UserID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}
