// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/olegiv/evreg-go/internal/model"
)

// CreateParticipationParams holds the fields for creating a participation.
type CreateParticipationParams struct {
	UserID           int64
	EventID          sql.NullInt64
	Status           string
	Attendance       sql.NullString
	RegistrationDate time.Time
}

// CreateParticipation inserts a new participation and returns it with its
// generated id.
func (q *Queries) CreateParticipation(ctx context.Context, arg CreateParticipationParams) (model.Participation, error) {
	now := time.Now().UTC()
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO participations (user_id, event_id, status, attendance, registration_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		arg.UserID, arg.EventID, arg.Status, arg.Attendance, arg.RegistrationDate, now, now,
	)
	if err != nil {
		return model.Participation{}, fmt.Errorf("insert participation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Participation{}, fmt.Errorf("participation insert id: %w", err)
	}
	return model.Participation{
		ID:               id,
		UserID:           arg.UserID,
		EventID:          arg.EventID,
		Status:           arg.Status,
		Attendance:       arg.Attendance,
		RegistrationDate: arg.RegistrationDate,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

const selectParticipation = `SELECT id, user_id, event_id, status, attendance, registration_date, created_at, updated_at FROM participations`

func scanParticipation(row interface{ Scan(...any) error }) (model.Participation, error) {
	var p model.Participation
	err := row.Scan(&p.ID, &p.UserID, &p.EventID, &p.Status, &p.Attendance,
		&p.RegistrationDate, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// GetParticipation returns a single participation or ErrNotFound.
func (q *Queries) GetParticipation(ctx context.Context, id int64) (model.Participation, error) {
	p, err := scanParticipation(q.db.QueryRowContext(ctx, selectParticipation+` WHERE id = ?`, id))
	if err != nil {
		return model.Participation{}, notFoundIfNoRows(err)
	}
	return p, nil
}

// ListParticipations returns all participations ordered by id. The order
// is stable so that repeated aggregate rebuilds over unchanged data
// produce identical projections.
func (q *Queries) ListParticipations(ctx context.Context) ([]model.Participation, error) {
	rows, err := q.db.QueryContext(ctx, selectParticipation+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list participations: %w", err)
	}
	defer rows.Close()

	var parts []model.Participation
	for rows.Next() {
		p, err := scanParticipation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participation: %w", err)
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

// ListParticipationsByEvent returns all participations referencing the
// given event id, ordered by id.
func (q *Queries) ListParticipationsByEvent(ctx context.Context, eventID int64) ([]model.Participation, error) {
	rows, err := q.db.QueryContext(ctx, selectParticipation+` WHERE event_id = ? ORDER BY id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list participations by event: %w", err)
	}
	defer rows.Close()

	var parts []model.Participation
	for rows.Next() {
		p, err := scanParticipation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participation: %w", err)
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

// UpdateParticipationParams holds the full set of mutable participation fields.
type UpdateParticipationParams struct {
	ID               int64
	UserID           int64
	EventID          sql.NullInt64
	Status           string
	Attendance       sql.NullString
	RegistrationDate time.Time
}

// UpdateParticipation writes back all mutable fields of a participation,
// or ErrNotFound.
func (q *Queries) UpdateParticipation(ctx context.Context, arg UpdateParticipationParams) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE participations SET user_id = ?, event_id = ?, status = ?, attendance = ?, registration_date = ?, updated_at = ?
		 WHERE id = ?`,
		arg.UserID, arg.EventID, arg.Status, arg.Attendance, arg.RegistrationDate, time.Now().UTC(), arg.ID,
	)
	return requireRowsAffected(res, err)
}

// DeleteParticipation removes a participation by id, or ErrNotFound.
func (q *Queries) DeleteParticipation(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM participations WHERE id = ?`, id)
	return requireRowsAffected(res, err)
}

// CountParticipations returns the total number of participations.
func (q *Queries) CountParticipations(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM participations`).Scan(&n)
	return n, err
}
