// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers for the event
// registration service.
package testutil

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/olegiv/evreg-go/internal/model"
	"github.com/olegiv/evreg-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
)

// TestLogger creates a silent test logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// TestDB creates a temporary test database with migrations applied.
// Cleanup is registered on the test.
func TestDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "evreg-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	_ = f.Close()

	db, err := store.NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}

	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		t.Fatalf("Migrate: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}

// TestMemoryDB creates an in-memory SQLite database with migrations
// applied. Faster than TestDB; limited to a single connection so every
// query sees the same in-memory database.
func TestMemoryDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	db.SetMaxOpenConns(1)

	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		t.Fatalf("Migrate: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}

// CreateUser inserts a user fixture and returns it.
func CreateUser(t *testing.T, db *sql.DB, email, role string) model.User {
	t.Helper()

	u, err := store.New(db).CreateUser(context.Background(), store.CreateUserParams{
		Email:        email,
		PasswordHash: "x",
		Name:         email,
		Role:         role,
	})
	if err != nil {
		t.Fatalf("creating user fixture %s: %v", email, err)
	}
	return u
}

// CreateEvent inserts an event fixture owned by the given user and returns it.
func CreateEvent(t *testing.T, db *sql.DB, title string, createdBy int64) model.Event {
	t.Helper()

	e, err := store.New(db).CreateEvent(context.Background(), store.CreateEventParams{
		Title:     title,
		Date:      "2026-09-01",
		Time:      "10:00",
		Type:      model.EventTypeMeetup,
		Capacity:  100,
		CreatedBy: createdBy,
	})
	if err != nil {
		t.Fatalf("creating event fixture %s: %v", title, err)
	}
	return e
}

// CreateParticipation inserts a participation fixture and returns it.
// Pass a zero-valued eventID to create an orphaned (NULL event) row.
func CreateParticipation(t *testing.T, db *sql.DB, userID int64, eventID sql.NullInt64, status string, attendance sql.NullString) model.Participation {
	t.Helper()

	p, err := store.New(db).CreateParticipation(context.Background(), store.CreateParticipationParams{
		UserID:           userID,
		EventID:          eventID,
		Status:           status,
		Attendance:       attendance,
		RegistrationDate: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("creating participation fixture for user %d: %v", userID, err)
	}
	return p
}

// EventRef wraps an event id for use as a participation fixture reference.
func EventRef(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: true}
}
