// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/olegiv/evreg-go/internal/model"
	"github.com/olegiv/evreg-go/internal/store"
)

// ParticipationResponse represents a participation in API responses.
// EventID is a pointer so a missing reference serializes as null rather
// than a fake zero id.
type ParticipationResponse struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	EventID          *int64    `json:"event_id"`
	Status           string    `json:"status"`
	Attendance       *string   `json:"attendance,omitempty"`
	RegistrationDate time.Time `json:"registration_date"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CreateParticipationRequest represents the request body for creating a
// participation.
type CreateParticipationRequest struct {
	UserID           int64   `json:"user_id"`
	EventID          *int64  `json:"event_id"`
	Status           string  `json:"status"`
	Attendance       *string `json:"attendance,omitempty"`
	RegistrationDate *string `json:"registration_date,omitempty"`
}

// UpdateParticipationRequest represents the request body for updating a
// participation. Absent fields are left unchanged.
type UpdateParticipationRequest struct {
	EventID          *int64  `json:"event_id,omitempty"`
	Status           *string `json:"status,omitempty"`
	Attendance       *string `json:"attendance,omitempty"`
	RegistrationDate *string `json:"registration_date,omitempty"`
}

func participationToResponse(p model.Participation) ParticipationResponse {
	resp := ParticipationResponse{
		ID:               p.ID,
		UserID:           p.UserID,
		Status:           p.Status,
		RegistrationDate: p.RegistrationDate,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	if p.EventID.Valid {
		resp.EventID = &p.EventID.Int64
	}
	if p.Attendance.Valid {
		resp.Attendance = &p.Attendance.String
	}
	return resp
}

// ListParticipations handles GET /api/v1/participations
//
// Rows whose event reference no longer resolves are left out of the
// listing and removed on the spot: listing is the one place orphans
// are guaranteed to be noticed, so cleanup happens here rather than
// waiting for the scheduled sweep. The count of removed orphans is
// reported in meta.
func (h *Handler) ListParticipations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	participations, err := h.queries.ListParticipations(ctx)
	if err != nil {
		WriteInternalError(w, "Failed to list participations")
		return
	}

	eventIDs, err := h.queries.ListEventIDs(ctx)
	if err != nil {
		WriteInternalError(w, "Failed to list events")
		return
	}

	responses := make([]ParticipationResponse, 0, len(participations))
	orphans := 0
	for _, p := range participations {
		if p.Orphaned(eventIDs) {
			orphans++
			continue
		}
		responses = append(responses, participationToResponse(p))
	}

	removed := 0
	if orphans > 0 {
		removed, err = h.engine.PurgeAllOrphans(ctx)
		if err != nil {
			// The clean rows are still fit to serve; the sweep
			// will retry on schedule.
			h.logger.Error("orphan purge during listing failed", "error", err)
			removed = 0
		} else {
			h.logger.Warn("orphaned participations removed during listing",
				"category", "integrity",
				"removed", removed,
			)
		}
	}

	WriteSuccess(w, responses, &Meta{
		Total:          int64(len(responses)),
		RemovedOrphans: removed,
	})
}

// GetParticipation handles GET /api/v1/participations/{id}
func (h *Handler) GetParticipation(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid participation ID", nil)
		return
	}

	p, err := h.queries.GetParticipation(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteNotFound(w, "Participation not found")
		} else {
			WriteInternalError(w, "Failed to retrieve participation")
		}
		return
	}
	WriteSuccess(w, participationToResponse(p), nil)
}

// CreateParticipation handles POST /api/v1/participations
func (h *Handler) CreateParticipation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateParticipationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	validationErrors := make(map[string]string)
	if !model.ValidStatus(req.Status) {
		validationErrors["status"] = "Status must be 'Assigned', 'Pending' or 'Registered'"
	}
	if req.Attendance != nil {
		if !model.ValidAttendance(*req.Attendance) {
			validationErrors["attendance"] = "Attendance must be 'Attended' or 'Completed'"
		} else if req.Status != model.StatusRegistered {
			validationErrors["attendance"] = "Attendance is only valid for Registered participations"
		}
	}
	if len(validationErrors) > 0 {
		WriteValidationError(w, validationErrors)
		return
	}

	if _, err := h.queries.GetUser(ctx, req.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteValidationError(w, map[string]string{"user_id": "User does not exist"})
		} else {
			WriteInternalError(w, "Failed to check user")
		}
		return
	}

	params := store.CreateParticipationParams{
		UserID:           req.UserID,
		Status:           req.Status,
		RegistrationDate: time.Now().UTC(),
	}
	if req.EventID != nil {
		if _, err := h.queries.GetEvent(ctx, *req.EventID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				WriteValidationError(w, map[string]string{"event_id": "Event does not exist"})
			} else {
				WriteInternalError(w, "Failed to check event")
			}
			return
		}
		params.EventID = sql.NullInt64{Int64: *req.EventID, Valid: true}
	}
	if req.Attendance != nil {
		params.Attendance = sql.NullString{String: *req.Attendance, Valid: true}
	}
	if req.RegistrationDate != nil {
		t, parseErr := time.Parse(time.RFC3339, *req.RegistrationDate)
		if parseErr != nil {
			WriteValidationError(w, map[string]string{"registration_date": "Invalid date format. Use RFC3339 (e.g., 2026-01-01T00:00:00Z)"})
			return
		}
		params.RegistrationDate = t
	}

	p, err := h.queries.CreateParticipation(ctx, params)
	if err != nil {
		WriteInternalError(w, "Failed to create participation")
		return
	}

	h.rebuild(r)
	WriteCreated(w, participationToResponse(p))
}

// UpdateParticipation handles PATCH /api/v1/participations/{id}
//
// Moving the status away from Registered clears attendance even when
// the request does not mention it.
func (h *Handler) UpdateParticipation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid participation ID", nil)
		return
	}

	var req UpdateParticipationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	p, err := h.queries.GetParticipation(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteNotFound(w, "Participation not found")
		} else {
			WriteInternalError(w, "Failed to retrieve participation")
		}
		return
	}

	if req.EventID != nil {
		if _, err := h.queries.GetEvent(ctx, *req.EventID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				WriteValidationError(w, map[string]string{"event_id": "Event does not exist"})
			} else {
				WriteInternalError(w, "Failed to check event")
			}
			return
		}
		p.EventID = sql.NullInt64{Int64: *req.EventID, Valid: true}
	}
	if req.Status != nil {
		if !model.ValidStatus(*req.Status) {
			WriteValidationError(w, map[string]string{"status": "Status must be 'Assigned', 'Pending' or 'Registered'"})
			return
		}
		p.SetStatus(*req.Status)
	}
	if req.Attendance != nil {
		if !model.ValidAttendance(*req.Attendance) {
			WriteValidationError(w, map[string]string{"attendance": "Attendance must be 'Attended' or 'Completed'"})
			return
		}
		if p.Status != model.StatusRegistered {
			WriteValidationError(w, map[string]string{"attendance": "Attendance is only valid for Registered participations"})
			return
		}
		p.Attendance = sql.NullString{String: *req.Attendance, Valid: true}
	}
	if req.RegistrationDate != nil {
		t, parseErr := time.Parse(time.RFC3339, *req.RegistrationDate)
		if parseErr != nil {
			WriteValidationError(w, map[string]string{"registration_date": "Invalid date format. Use RFC3339 (e.g., 2026-01-01T00:00:00Z)"})
			return
		}
		p.RegistrationDate = t
	}

	if err := h.queries.UpdateParticipation(ctx, store.UpdateParticipationParams{
		ID:               p.ID,
		UserID:           p.UserID,
		EventID:          p.EventID,
		Status:           p.Status,
		Attendance:       p.Attendance,
		RegistrationDate: p.RegistrationDate,
	}); err != nil {
		WriteInternalError(w, "Failed to update participation")
		return
	}

	h.rebuild(r)
	WriteSuccess(w, participationToResponse(p), nil)
}

// DeleteParticipation handles DELETE /api/v1/participations/{id}
func (h *Handler) DeleteParticipation(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid participation ID", nil)
		return
	}

	if err := h.queries.DeleteParticipation(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteNotFound(w, "Participation not found")
		} else {
			WriteInternalError(w, "Failed to delete participation")
		}
		return
	}

	h.rebuild(r)
	w.WriteHeader(http.StatusNoContent)
}
