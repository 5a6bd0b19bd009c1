// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Event types.
const (
	EventTypeWebinar  = "Webinar"
	EventTypeWorkshop = "Workshop"
	EventTypeMeetup   = "Meetup"
)

// Event represents a bookable event owned by an admin user. Deleting an
// event is the trigger for cascade cleanup of its participations.
type Event struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        string    `json:"date"` // YYYY-MM-DD, display format owned by the client
	Time        string    `json:"time"` // HH:MM
	Location    string    `json:"location"`
	Type        string    `json:"type"`
	Capacity    int64     `json:"capacity"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ValidEventType reports whether t is one of the known event types.
func ValidEventType(t string) bool {
	switch t {
	case EventTypeWebinar, EventTypeWorkshop, EventTypeMeetup:
		return true
	}
	return false
}
