// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/evreg-go/internal/auth"
	"github.com/olegiv/evreg-go/internal/model"
)

// Default admin credentials
const (
	DefaultAdminEmail    = "admin@example.com"
	DefaultAdminPassword = "changeme"
	DefaultAdminName     = "Administrator"
)

// Seed creates the default admin user if no user with that email exists.
func Seed(ctx context.Context, db *sql.DB) error {
	queries := New(db)

	_, err := queries.GetUserByEmail(ctx, DefaultAdminEmail)
	if err == nil {
		slog.Info("admin user already exists, skipping seed")
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("checking for admin user: %w", err)
	}

	passwordHash, err := auth.HashPassword(DefaultAdminPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	user, err := queries.CreateUser(ctx, CreateUserParams{
		Email:        DefaultAdminEmail,
		PasswordHash: passwordHash,
		Name:         DefaultAdminName,
		Role:         model.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	slog.Info("created default admin user",
		"id", user.ID,
		"email", user.Email,
		"password", DefaultAdminPassword,
	)

	return nil
}

// SeedDemo populates demo users, events and participations. Intended for
// development environments only (EVREG_DO_SEED). Idempotent: skips when
// any non-admin user already exists.
func SeedDemo(ctx context.Context, db *sql.DB) error {
	queries := New(db)

	users, err := queries.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("listing users: %w", err)
	}
	for _, u := range users {
		if !u.IsAdmin() {
			slog.Info("demo data already present, skipping demo seed")
			return nil
		}
	}

	admin, err := queries.GetUserByEmail(ctx, DefaultAdminEmail)
	if err != nil {
		return fmt.Errorf("loading admin user: %w", err)
	}

	passwordHash, err := auth.HashPassword("demo1234")
	if err != nil {
		return fmt.Errorf("hashing demo password: %w", err)
	}

	// All demo rows commit together or not at all.
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning demo seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	qtx := queries.WithTx(tx)

	demoUsers := []CreateUserParams{
		{Email: "alice@example.com", PasswordHash: passwordHash, Name: "Alice Martin", Role: model.RoleUser},
		{Email: "bob@example.com", PasswordHash: passwordHash, Name: "Bob Keller", Role: model.RoleUser},
	}
	var created []model.User
	for _, p := range demoUsers {
		u, err := qtx.CreateUser(ctx, p)
		if err != nil {
			return fmt.Errorf("creating demo user %s: %w", p.Email, err)
		}
		created = append(created, u)
	}

	event, err := qtx.CreateEvent(ctx, CreateEventParams{
		Title:       "Go Performance Workshop",
		Description: "Hands-on profiling and optimization session.",
		Date:        "2026-10-12",
		Time:        "18:00",
		Location:    "Online",
		Type:        model.EventTypeWorkshop,
		Capacity:    50,
		CreatedBy:   admin.ID,
	})
	if err != nil {
		return fmt.Errorf("creating demo event: %w", err)
	}

	for i, u := range created {
		status := model.StatusRegistered
		attendance := sql.NullString{}
		if i%2 == 1 {
			status = model.StatusPending
		} else {
			attendance = sql.NullString{String: model.AttendanceAttended, Valid: true}
		}
		if _, err := qtx.CreateParticipation(ctx, CreateParticipationParams{
			UserID:           u.ID,
			EventID:          sql.NullInt64{Int64: event.ID, Valid: true},
			Status:           status,
			Attendance:       attendance,
			RegistrationDate: time.Now().UTC(),
		}); err != nil {
			return fmt.Errorf("creating demo participation for user %d: %w", u.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing demo seed: %w", err)
	}

	slog.Info("seeded demo data", "users", len(created), "event_id", event.ID)
	return nil
}
