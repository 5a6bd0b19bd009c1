// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/evreg-go/internal/model"
	"github.com/olegiv/evreg-go/internal/store"
	"github.com/olegiv/evreg-go/internal/testutil"
)

func TestUserCRUD(t *testing.T) {
	db := testutil.TestDB(t)
	q := store.New(db)
	ctx := context.Background()

	u, err := q.CreateUser(ctx, store.CreateUserParams{
		Email:        "carol@example.com",
		PasswordHash: "hash",
		Name:         "Carol",
		Role:         model.RoleUser,
	})
	require.NoError(t, err)
	require.NotZero(t, u.ID)

	got, err := q.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", got.Email)

	byEmail, err := q.GetUserByEmail(ctx, "carol@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	got.Role = model.RoleAdmin
	require.NoError(t, q.UpdateUser(ctx, store.UpdateUserParams{
		ID:           got.ID,
		Email:        got.Email,
		PasswordHash: got.PasswordHash,
		Name:         got.Name,
		Role:         got.Role,
	}))

	updated, err := q.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsAdmin())

	require.NoError(t, q.DeleteUser(ctx, u.ID))

	_, err = q.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestNotFoundSemantics(t *testing.T) {
	db := testutil.TestDB(t)
	q := store.New(db)
	ctx := context.Background()

	_, err := q.GetEvent(ctx, 12345)
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = q.DeleteEvent(ctx, 12345)
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = q.UpdateEvent(ctx, store.UpdateEventParams{ID: 12345, Title: "x", Type: model.EventTypeMeetup, Capacity: 1})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDoubleDeleteIsDetectable(t *testing.T) {
	db := testutil.TestDB(t)
	q := store.New(db)
	ctx := context.Background()

	admin := testutil.CreateUser(t, db, "admin@x.test", model.RoleAdmin)
	event := testutil.CreateEvent(t, db, "Gophers Meetup", admin.ID)
	p := testutil.CreateParticipation(t, db, admin.ID, testutil.EventRef(event.ID), model.StatusPending, sql.NullString{})

	require.NoError(t, q.DeleteParticipation(ctx, p.ID))

	// The second delete reports ErrNotFound. Cleanup callers treat that as
	// "already clean" rather than a failure.
	err := q.DeleteParticipation(ctx, p.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestParticipationNullableColumns(t *testing.T) {
	db := testutil.TestDB(t)
	q := store.New(db)
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "dave@x.test", model.RoleUser)
	orphan := testutil.CreateParticipation(t, db, u.ID, sql.NullInt64{}, model.StatusAssigned, sql.NullString{})

	got, err := q.GetParticipation(ctx, orphan.ID)
	require.NoError(t, err)
	assert.False(t, got.EventID.Valid, "NULL event_id must round-trip as invalid")
	assert.False(t, got.Attendance.Valid)
}

func TestListParticipationsByEvent(t *testing.T) {
	db := testutil.TestDB(t)
	q := store.New(db)
	ctx := context.Background()

	admin := testutil.CreateUser(t, db, "admin@x.test", model.RoleAdmin)
	e1 := testutil.CreateEvent(t, db, "One", admin.ID)
	e2 := testutil.CreateEvent(t, db, "Two", admin.ID)

	testutil.CreateParticipation(t, db, admin.ID, testutil.EventRef(e1.ID), model.StatusPending, sql.NullString{})
	testutil.CreateParticipation(t, db, admin.ID, testutil.EventRef(e1.ID), model.StatusRegistered, sql.NullString{})
	testutil.CreateParticipation(t, db, admin.ID, testutil.EventRef(e2.ID), model.StatusPending, sql.NullString{})

	parts, err := q.ListParticipationsByEvent(ctx, e1.ID)
	require.NoError(t, err)
	assert.Len(t, parts, 2)
	for _, p := range parts {
		assert.Equal(t, e1.ID, p.EventID.Int64)
	}
}

func TestReplaceRegistrationSummariesIsFullReplace(t *testing.T) {
	db := testutil.TestDB(t)
	q := store.New(db)
	ctx := context.Background()

	first := []model.RegistrationSummary{
		{UserID: 1, UserName: "A", UserEmail: "a@x.test", RegisteredEvents: []model.RegisteredEvent{}, RebuiltAt: time.Now().UTC()},
		{UserID: 2, UserName: "B", UserEmail: "b@x.test", RegisteredEvents: []model.RegisteredEvent{}, RebuiltAt: time.Now().UTC()},
	}
	require.NoError(t, store.ReplaceRegistrationSummaries(ctx, db, first))

	summaries, err := q.ListRegistrationSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// A replace with a single entry must drop the stale user 2 row.
	attendance := model.AttendanceCompleted
	second := []model.RegistrationSummary{
		{
			UserID:    1,
			UserName:  "A",
			UserEmail: "a@x.test",
			RegisteredEvents: []model.RegisteredEvent{
				{EventID: 9, EventTitle: "Snapshotted Title", Status: model.StatusRegistered,
					RegistrationDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), Attendance: &attendance},
			},
			TotalRegistrations: 1,
			RebuiltAt:          time.Now().UTC(),
		},
	}
	require.NoError(t, store.ReplaceRegistrationSummaries(ctx, db, second))

	summaries, err = q.ListRegistrationSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, int64(1), summaries[0].UserID)
	require.Len(t, summaries[0].RegisteredEvents, 1)
	assert.Equal(t, "Snapshotted Title", summaries[0].RegisteredEvents[0].EventTitle)
	require.NotNil(t, summaries[0].RegisteredEvents[0].Attendance)
	assert.Equal(t, model.AttendanceCompleted, *summaries[0].RegisteredEvents[0].Attendance)

	one, err := q.GetRegistrationSummary(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, one.TotalRegistrations)

	_, err = q.GetRegistrationSummary(ctx, 2)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSeedIdempotent(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()

	require.NoError(t, store.Seed(ctx, db))
	require.NoError(t, store.Seed(ctx, db))

	n, err := store.New(db).CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
