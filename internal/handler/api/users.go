// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/olegiv/evreg-go/internal/auth"
	"github.com/olegiv/evreg-go/internal/model"
	"github.com/olegiv/evreg-go/internal/store"
)

// CreateUserRequest represents the request body for creating a user.
type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
}

// UpdateUserRequest represents the request body for updating a user.
// Absent fields are left unchanged.
type UpdateUserRequest struct {
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	Name     *string `json:"name,omitempty"`
	Role     *string `json:"role,omitempty"`
}

// ListUsers handles GET /api/v1/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.queries.ListUsers(r.Context())
	if err != nil {
		WriteInternalError(w, "Failed to list users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	WriteSuccess(w, users, &Meta{Total: int64(len(users))})
}

// GetUser handles GET /api/v1/users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid user ID", nil)
		return
	}

	user, err := h.queries.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteNotFound(w, "User not found")
		} else {
			WriteInternalError(w, "Failed to retrieve user")
		}
		return
	}
	WriteSuccess(w, user, nil)
}

// CreateUser handles POST /api/v1/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	validationErrors := make(map[string]string)
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		validationErrors["email"] = "A valid email is required"
	}
	if req.Password == "" {
		validationErrors["password"] = "Password is required"
	}
	if strings.TrimSpace(req.Name) == "" {
		validationErrors["name"] = "Name is required"
	}
	if req.Role == "" {
		req.Role = model.RoleUser
	}
	if !model.ValidRole(req.Role) {
		validationErrors["role"] = "Role must be 'admin' or 'user'"
	}
	if len(validationErrors) > 0 {
		WriteValidationError(w, validationErrors)
		return
	}

	if _, err := h.queries.GetUserByEmail(ctx, req.Email); err == nil {
		WriteValidationError(w, map[string]string{"email": "Email already in use"})
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		WriteInternalError(w, "Failed to check email")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		WriteInternalError(w, "Failed to hash password")
		return
	}

	user, err := h.queries.CreateUser(ctx, store.CreateUserParams{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
		Role:         req.Role,
	})
	if err != nil {
		WriteInternalError(w, "Failed to create user")
		return
	}

	h.rebuild(r)
	WriteCreated(w, user)
}

// UpdateUser handles PATCH /api/v1/users/{id}
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid user ID", nil)
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	user, err := h.queries.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteNotFound(w, "User not found")
		} else {
			WriteInternalError(w, "Failed to retrieve user")
		}
		return
	}

	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email == "" || !strings.Contains(email, "@") {
			WriteValidationError(w, map[string]string{"email": "A valid email is required"})
			return
		}
		user.Email = email
	}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			WriteValidationError(w, map[string]string{"name": "Name cannot be empty"})
			return
		}
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Role != nil {
		if !model.ValidRole(*req.Role) {
			WriteValidationError(w, map[string]string{"role": "Role must be 'admin' or 'user'"})
			return
		}
		user.Role = *req.Role
	}
	if req.Password != nil {
		if *req.Password == "" {
			WriteValidationError(w, map[string]string{"password": "Password cannot be empty"})
			return
		}
		hash, hashErr := auth.HashPassword(*req.Password)
		if hashErr != nil {
			WriteInternalError(w, "Failed to hash password")
			return
		}
		user.PasswordHash = hash
	}

	if err := h.queries.UpdateUser(ctx, store.UpdateUserParams{
		ID:           user.ID,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Name:         user.Name,
		Role:         user.Role,
	}); err != nil {
		WriteInternalError(w, "Failed to update user")
		return
	}

	h.rebuild(r)
	WriteSuccess(w, user, nil)
}

// DeleteUser handles DELETE /api/v1/users/{id}
//
// Deleting a user never cascades into participations or events; any
// rows left pointing at the gone user simply stop resolving and fall
// out of the projection on the next rebuild.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid user ID", nil)
		return
	}

	if err := h.queries.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteNotFound(w, "User not found")
		} else {
			WriteInternalError(w, "Failed to delete user")
		}
		return
	}

	h.rebuild(r)
	w.WriteHeader(http.StatusNoContent)
}
