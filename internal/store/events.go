// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/olegiv/evreg-go/internal/model"
)

// CreateEventParams holds the fields for creating an event.
type CreateEventParams struct {
	Title       string
	Description string
	Date        string
	Time        string
	Location    string
	Type        string
	Capacity    int64
	CreatedBy   int64
}

// CreateEvent inserts a new event and returns it with its generated id.
func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (model.Event, error) {
	now := time.Now().UTC()
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO events (title, description, date, time, location, type, capacity, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.Title, arg.Description, arg.Date, arg.Time, arg.Location, arg.Type, arg.Capacity, arg.CreatedBy, now, now,
	)
	if err != nil {
		return model.Event{}, fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Event{}, fmt.Errorf("event insert id: %w", err)
	}
	return model.Event{
		ID:          id,
		Title:       arg.Title,
		Description: arg.Description,
		Date:        arg.Date,
		Time:        arg.Time,
		Location:    arg.Location,
		Type:        arg.Type,
		Capacity:    arg.Capacity,
		CreatedBy:   arg.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

const selectEvent = `SELECT id, title, description, date, time, location, type, capacity, created_by, created_at, updated_at FROM events`

func scanEvent(row interface{ Scan(...any) error }) (model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Date, &e.Time, &e.Location,
		&e.Type, &e.Capacity, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// GetEvent returns a single event or ErrNotFound.
func (q *Queries) GetEvent(ctx context.Context, id int64) (model.Event, error) {
	e, err := scanEvent(q.db.QueryRowContext(ctx, selectEvent+` WHERE id = ?`, id))
	if err != nil {
		return model.Event{}, notFoundIfNoRows(err)
	}
	return e, nil
}

// ListEvents returns all events ordered by id.
func (q *Queries) ListEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := q.db.QueryContext(ctx, selectEvent+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ListEventIDs returns the set of existing event ids. The integrity
// engine uses it for O(1) membership checks during a sweep.
func (q *Queries) ListEventIDs(ctx context.Context) (map[int64]struct{}, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id FROM events`)
	if err != nil {
		return nil, fmt.Errorf("list event ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan event id: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// UpdateEventParams holds the full set of mutable event fields.
type UpdateEventParams struct {
	ID          int64
	Title       string
	Description string
	Date        string
	Time        string
	Location    string
	Type        string
	Capacity    int64
}

// UpdateEvent writes back all mutable fields of an event, or ErrNotFound.
func (q *Queries) UpdateEvent(ctx context.Context, arg UpdateEventParams) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE events SET title = ?, description = ?, date = ?, time = ?, location = ?, type = ?, capacity = ?, updated_at = ?
		 WHERE id = ?`,
		arg.Title, arg.Description, arg.Date, arg.Time, arg.Location, arg.Type, arg.Capacity, time.Now().UTC(), arg.ID,
	)
	return requireRowsAffected(res, err)
}

// DeleteEvent removes an event by id, or ErrNotFound.
func (q *Queries) DeleteEvent(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	return requireRowsAffected(res, err)
}

// CountEvents returns the total number of events.
func (q *Queries) CountEvents(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n)
	return n, err
}
