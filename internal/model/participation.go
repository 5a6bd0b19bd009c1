// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Participation statuses.
const (
	StatusAssigned   = "Assigned"
	StatusPending    = "Pending"
	StatusRegistered = "Registered"
)

// Attendance values. Attendance is only meaningful while the
// participation status is Registered.
const (
	AttendanceAttended  = "Attended"
	AttendanceCompleted = "Completed"
)

// Participation represents one user's relationship to one event.
//
// EventID is nullable: the column must be able to hold a missing or
// dangling reference so the integrity engine can find and purge it.
// A NULL event id is checked via Valid, never by comparing against zero;
// 0 is a legitimate id value.
type Participation struct {
	ID               int64          `json:"id"`
	UserID           int64          `json:"user_id"`
	EventID          sql.NullInt64  `json:"-"`
	Status           string         `json:"status"`
	Attendance       sql.NullString `json:"-"`
	RegistrationDate time.Time      `json:"registration_date"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// SetStatus updates the status and clears attendance whenever the
// participation leaves the Registered state.
func (p *Participation) SetStatus(status string) {
	p.Status = status
	if status != StatusRegistered {
		p.Attendance = sql.NullString{}
	}
}

// Orphaned reports whether the participation references a missing event,
// given the set of existing event ids. A NULL event id is always an
// orphan; an id of 0 is an orphan only when no event 0 exists.
func (p *Participation) Orphaned(eventIDs map[int64]struct{}) bool {
	if !p.EventID.Valid {
		return true
	}
	_, ok := eventIDs[p.EventID.Int64]
	return !ok
}

// ValidStatus reports whether s is one of the known participation statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusAssigned, StatusPending, StatusRegistered:
		return true
	}
	return false
}

// ValidAttendance reports whether a is one of the known attendance values.
func ValidAttendance(a string) bool {
	return a == AttendanceAttended || a == AttendanceCompleted
}
