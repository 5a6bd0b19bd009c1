// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/olegiv/evreg-go/internal/model"
	"github.com/olegiv/evreg-go/internal/service"
	"github.com/olegiv/evreg-go/internal/store"
	"github.com/olegiv/evreg-go/internal/webhook"
)

// CreateEventRequest represents the request body for creating an event.
type CreateEventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Location    string `json:"location,omitempty"`
	Type        string `json:"type"`
	Capacity    int64  `json:"capacity"`
	CreatedBy   int64  `json:"created_by"`
}

// UpdateEventRequest represents the request body for updating an event.
// Absent fields are left unchanged.
type UpdateEventRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Date        *string `json:"date,omitempty"`
	Time        *string `json:"time,omitempty"`
	Location    *string `json:"location,omitempty"`
	Type        *string `json:"type,omitempty"`
	Capacity    *int64  `json:"capacity,omitempty"`
}

// ListEvents handles GET /api/v1/events
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.queries.ListEvents(r.Context())
	if err != nil {
		WriteInternalError(w, "Failed to list events")
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	WriteSuccess(w, events, &Meta{Total: int64(len(events))})
}

// GetEvent handles GET /api/v1/events/{id}
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid event ID", nil)
		return
	}

	event, err := h.queries.GetEvent(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteNotFound(w, "Event not found")
		} else {
			WriteInternalError(w, "Failed to retrieve event")
		}
		return
	}
	WriteSuccess(w, event, nil)
}

// CreateEvent handles POST /api/v1/events
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	validationErrors := make(map[string]string)
	if strings.TrimSpace(req.Title) == "" {
		validationErrors["title"] = "Title is required"
	}
	if req.Date == "" {
		validationErrors["date"] = "Date is required"
	}
	if req.Time == "" {
		validationErrors["time"] = "Time is required"
	}
	if !model.ValidEventType(req.Type) {
		validationErrors["type"] = "Type must be 'Webinar', 'Workshop' or 'Meetup'"
	}
	if req.Capacity <= 0 {
		validationErrors["capacity"] = "Capacity must be positive"
	}
	if len(validationErrors) > 0 {
		WriteValidationError(w, validationErrors)
		return
	}

	event, err := h.queries.CreateEvent(ctx, store.CreateEventParams{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Date:        req.Date,
		Time:        req.Time,
		Location:    req.Location,
		Type:        req.Type,
		Capacity:    req.Capacity,
		CreatedBy:   req.CreatedBy,
	})
	if err != nil {
		WriteInternalError(w, "Failed to create event")
		return
	}

	WriteCreated(w, event)
}

// UpdateEvent handles PATCH /api/v1/events/{id}
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid event ID", nil)
		return
	}

	var req UpdateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	event, err := h.queries.GetEvent(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteNotFound(w, "Event not found")
		} else {
			WriteInternalError(w, "Failed to retrieve event")
		}
		return
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			WriteValidationError(w, map[string]string{"title": "Title cannot be empty"})
			return
		}
		event.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
	if req.Date != nil {
		event.Date = *req.Date
	}
	if req.Time != nil {
		event.Time = *req.Time
	}
	if req.Location != nil {
		event.Location = *req.Location
	}
	if req.Type != nil {
		if !model.ValidEventType(*req.Type) {
			WriteValidationError(w, map[string]string{"type": "Type must be 'Webinar', 'Workshop' or 'Meetup'"})
			return
		}
		event.Type = *req.Type
	}
	if req.Capacity != nil {
		if *req.Capacity <= 0 {
			WriteValidationError(w, map[string]string{"capacity": "Capacity must be positive"})
			return
		}
		event.Capacity = *req.Capacity
	}

	if err := h.queries.UpdateEvent(ctx, store.UpdateEventParams{
		ID:          event.ID,
		Title:       event.Title,
		Description: event.Description,
		Date:        event.Date,
		Time:        event.Time,
		Location:    event.Location,
		Type:        event.Type,
		Capacity:    event.Capacity,
	}); err != nil {
		WriteInternalError(w, "Failed to update event")
		return
	}

	// Titles are snapshotted into the projection, so a rename has to
	// flow through a rebuild.
	h.rebuild(r)
	WriteSuccess(w, event, nil)
}

// DeleteEvent handles DELETE /api/v1/events/{id}
//
// The delete is followed synchronously by the cascade purge of the
// event's participations and a projection rebuild, so by the time the
// 204 goes out no registration references the gone event.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid event ID", nil)
		return
	}

	event, err := h.queries.GetEvent(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteNotFound(w, "Event not found")
		} else {
			WriteInternalError(w, "Failed to retrieve event")
		}
		return
	}

	if err := h.queries.DeleteEvent(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteNotFound(w, "Event not found")
		} else {
			WriteInternalError(w, "Failed to delete event")
		}
		return
	}

	purged, err := h.engine.PurgeParticipationsOfEvent(ctx, id)
	if err != nil {
		h.logger.Error("cascade purge after event delete failed", "event_id", id, "error", err)
	}

	h.rebuild(r)

	h.dispatch(r, webhook.NewEvent(webhook.EventTypeEventDeleted, webhook.EventDeletedData{
		EventID:              id,
		Title:                event.Title,
		PurgedParticipations: purged,
	}))

	_ = h.audit.LogInfo(ctx, service.AuditCategoryEvent, "event deleted", nil, map[string]any{
		"event_id":              id,
		"title":                 event.Title,
		"purged_participations": purged,
	})

	w.WriteHeader(http.StatusNoContent)
}
