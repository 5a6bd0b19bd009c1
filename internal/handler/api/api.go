// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides REST API handlers for the event registration
// service.
package api

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/evreg-go/internal/aggregate"
	"github.com/olegiv/evreg-go/internal/cache"
	"github.com/olegiv/evreg-go/internal/integrity"
	"github.com/olegiv/evreg-go/internal/service"
	"github.com/olegiv/evreg-go/internal/store"
	"github.com/olegiv/evreg-go/internal/webhook"
)

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	db        *sql.DB
	queries   *store.Queries
	cache     cache.Cache
	engine    *integrity.Engine
	rebuilder *aggregate.Rebuilder
	audit     *service.AuditService
	webhooks  *webhook.Dispatcher
	logger    *slog.Logger
	startTime time.Time
}

// NewHandler creates a new API handler. The cache and dispatcher may be
// nil; caching and webhook notifications are then skipped.
func NewHandler(db *sql.DB, c cache.Cache, dispatcher *webhook.Dispatcher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		db:        db,
		queries:   store.New(db),
		cache:     c,
		engine:    integrity.New(db, logger),
		rebuilder: aggregate.New(db, c, logger),
		audit:     service.NewAuditService(db),
		webhooks:  dispatcher,
		logger:    logger,
		startTime: time.Now(),
	}
}

// Routes returns the /api/v1 router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/status", h.Status)

	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.Post("/", h.CreateUser)
		r.Get("/{id}", h.GetUser)
		r.Patch("/{id}", h.UpdateUser)
		r.Delete("/{id}", h.DeleteUser)
	})

	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.ListEvents)
		r.Post("/", h.CreateEvent)
		r.Get("/{id}", h.GetEvent)
		r.Patch("/{id}", h.UpdateEvent)
		r.Delete("/{id}", h.DeleteEvent)
	})

	r.Route("/participations", func(r chi.Router) {
		r.Get("/", h.ListParticipations)
		r.Post("/", h.CreateParticipation)
		r.Get("/{id}", h.GetParticipation)
		r.Patch("/{id}", h.UpdateParticipation)
		r.Delete("/{id}", h.DeleteParticipation)
	})

	r.Get("/registrations", h.ListRegistrations)
	r.Get("/registrations/{id}", h.GetRegistration)

	r.Post("/admin/sweep", h.Sweep)

	return r
}

// Response is the standard API response wrapper.
type Response struct {
	Data any   `json:"data,omitempty"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta contains collection metadata.
type Meta struct {
	Total          int64 `json:"total,omitempty"`
	RemovedOrphans int   `json:"removed_orphans,omitempty"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any, meta *Meta) {
	WriteJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// WriteCreated writes a 201 Created JSON response.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Response{Data: data})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string, details map[string]string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message, details)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message, nil)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message, nil)
}

// WriteValidationError writes a 422 Unprocessable Entity response with field errors.
func WriteValidationError(w http.ResponseWriter, fieldErrors map[string]string) {
	WriteError(w, http.StatusUnprocessableEntity, "validation_error", "Validation failed", fieldErrors)
}

// ParseIDParam parses the {id} URL parameter. Zero is a valid id; only
// non-numeric or negative values are rejected.
func ParseIDParam(r *http.Request) (int64, error) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, err
	}
	if id < 0 {
		return 0, strconv.ErrRange
	}
	return id, nil
}

// StatusResponse contains API status information.
type StatusResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	Events         int64  `json:"events"`
	Participations int64  `json:"participations"`
}

// Status returns the API status with collection sizes.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	events, err := h.queries.CountEvents(ctx)
	if err != nil {
		WriteInternalError(w, "Failed to count events")
		return
	}
	participations, err := h.queries.CountParticipations(ctx)
	if err != nil {
		WriteInternalError(w, "Failed to count participations")
		return
	}

	WriteSuccess(w, StatusResponse{
		Status:         "ok",
		Version:        "v1",
		Events:         events,
		Participations: participations,
	}, nil)
}

// dispatch sends a webhook event when a dispatcher is configured.
func (h *Handler) dispatch(r *http.Request, event *webhook.Event) {
	if h.webhooks == nil {
		return
	}
	h.webhooks.Dispatch(r.Context(), event)
}

// rebuild regenerates the registrations projection after a mutation.
// Failures are logged, not surfaced: the mutation itself succeeded and
// the projection can always be rebuilt later.
func (h *Handler) rebuild(r *http.Request) {
	if _, err := h.rebuilder.RebuildUserRegistrations(r.Context()); err != nil {
		h.logger.Error("projection rebuild after mutation failed", "error", err)
	}
}
