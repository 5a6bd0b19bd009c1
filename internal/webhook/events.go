// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package webhook notifies subscriber endpoints of registration system
// events: cascade cleanups and projection rebuilds.
package webhook

import "time"

// Event types dispatched by the service.
const (
	EventTypeEventDeleted         = "event.deleted"
	EventTypeParticipationsPurged = "participations.purged"
	EventTypeRegistrationsRebuilt = "registrations.rebuilt"
)

// Event represents a webhook event to be dispatched.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// NewEvent creates a new webhook event.
func NewEvent(eventType string, data any) *Event {
	return &Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventDeletedData contains data for event deletion notifications.
type EventDeletedData struct {
	EventID              int64  `json:"event_id"`
	Title                string `json:"title"`
	PurgedParticipations int    `json:"purged_participations"`
}

// ParticipationsPurgedData contains data for orphan sweep notifications.
type ParticipationsPurgedData struct {
	Removed int `json:"removed"`
}

// RegistrationsRebuiltData contains data for projection rebuild notifications.
type RegistrationsRebuiltData struct {
	Users int `json:"users"`
}
