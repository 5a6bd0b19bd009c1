// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// RegisteredEvent is one resolved participation inside a user's
// registration summary. EventTitle is snapshotted at rebuild time.
// Attendance is present only when the participation status is Registered.
type RegisteredEvent struct {
	EventID          int64     `json:"event_id"`
	EventTitle       string    `json:"event_title"`
	Status           string    `json:"status"`
	RegistrationDate time.Time `json:"registration_date"`
	Attendance       *string   `json:"attendance,omitempty"`
}

// RegistrationSummary is the derived per-user projection over
// Users x Participations x Events. It has no independent lifecycle: the
// whole collection is replaced on every rebuild and must never be used
// as a source of truth for mutations.
type RegistrationSummary struct {
	UserID             int64             `json:"user_id"`
	UserName           string            `json:"user_name"`
	UserEmail          string            `json:"user_email"`
	RegisteredEvents   []RegisteredEvent `json:"registered_events"`
	TotalRegistrations int               `json:"total_registrations"`
	RebuiltAt          time.Time         `json:"rebuilt_at"`
}
