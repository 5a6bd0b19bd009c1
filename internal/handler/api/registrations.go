// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/olegiv/evreg-go/internal/cache"
	"github.com/olegiv/evreg-go/internal/model"
	"github.com/olegiv/evreg-go/internal/service"
	"github.com/olegiv/evreg-go/internal/store"
	"github.com/olegiv/evreg-go/internal/webhook"
)

// ListRegistrations handles GET /api/v1/registrations
//
// The projection is served from cache when warm. The cached value is
// the complete response envelope, meta included, so hits and misses
// share one shape. On a miss the stored summaries are read, wrapped
// and written back to the cache; the rebuilder invalidates the key
// after every rebuild.
func (h *Handler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.cache != nil {
		if cached, err := h.cache.Get(ctx, cache.KeyRegistrations); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(cached)
			return
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			h.logger.Warn("registrations cache read failed", "error", err)
		}
	}

	summaries, err := h.queries.ListRegistrationSummaries(ctx)
	if err != nil {
		WriteInternalError(w, "Failed to list registrations")
		return
	}
	if summaries == nil {
		summaries = []model.RegistrationSummary{}
	}

	resp := Response{Data: summaries, Meta: &Meta{Total: int64(len(summaries))}}

	if h.cache != nil {
		if data, err := json.Marshal(resp); err == nil {
			if err := h.cache.Set(ctx, cache.KeyRegistrations, data, 0); err != nil {
				h.logger.Warn("registrations cache write failed", "error", err)
			}
		}
	}

	WriteJSON(w, http.StatusOK, resp)
}

// GetRegistration handles GET /api/v1/registrations/{id}
//
// The id is the user id the summary belongs to; summaries have no ids
// of their own.
func (h *Handler) GetRegistration(w http.ResponseWriter, r *http.Request) {
	userID, err := ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid user ID", nil)
		return
	}

	summary, err := h.queries.GetRegistrationSummary(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteNotFound(w, "Registration summary not found")
		} else {
			WriteInternalError(w, "Failed to retrieve registration summary")
		}
		return
	}
	WriteSuccess(w, summary, nil)
}

// SweepResponse reports the outcome of an ad-hoc consistency sweep.
type SweepResponse struct {
	RemovedParticipations int `json:"removed_participations"`
	RebuiltUsers          int `json:"rebuilt_users"`
}

// Sweep handles POST /api/v1/admin/sweep
//
// Runs a full orphan purge followed by a projection rebuild and
// reports the counts. The same pair also runs at startup and on the
// cron schedule; this endpoint exists for operators who do not want to
// wait.
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	removed, err := h.engine.PurgeAllOrphans(ctx)
	if err != nil {
		WriteInternalError(w, "Orphan sweep failed")
		return
	}

	summaries, err := h.rebuilder.RebuildUserRegistrations(ctx)
	if err != nil {
		WriteInternalError(w, "Projection rebuild failed")
		return
	}

	if removed > 0 {
		h.dispatch(r, webhook.NewEvent(webhook.EventTypeParticipationsPurged, webhook.ParticipationsPurgedData{
			Removed: removed,
		}))
	}
	h.dispatch(r, webhook.NewEvent(webhook.EventTypeRegistrationsRebuilt, webhook.RegistrationsRebuiltData{
		Users: len(summaries),
	}))

	_ = h.audit.LogInfo(ctx, service.AuditCategoryIntegrity, "manual consistency sweep", nil, map[string]any{
		"removed_participations": removed,
		"rebuilt_users":          len(summaries),
	})

	WriteSuccess(w, SweepResponse{
		RemovedParticipations: removed,
		RebuiltUsers:          len(summaries),
	}, nil)
}
