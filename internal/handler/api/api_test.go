// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/evreg-go/internal/cache"
	"github.com/olegiv/evreg-go/internal/model"
	"github.com/olegiv/evreg-go/internal/store"
	"github.com/olegiv/evreg-go/internal/testutil"
)

// newTestServer builds a handler over a fresh migrated database and
// mounts the full API router plus health endpoints.
func newTestServer(t *testing.T) (*Handler, chi.Router, *sql.DB) {
	t.Helper()

	db := testutil.TestDB(t)
	c := cache.NewMemoryCache(time.Minute)
	t.Cleanup(func() { _ = c.Close() })

	h := NewHandler(db, c, nil, testutil.TestLogger())

	r := chi.NewRouter()
	r.Mount("/api/v1", h.Routes())
	r.Get("/health", h.Health)

	return h, r, db
}

func doJSON(t *testing.T, r chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var resp struct {
		Data T     `json:"data"`
		Meta *Meta `json:"meta"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp.Data
}

func TestUserLifecycle(t *testing.T) {
	_, r, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/users", CreateUserRequest{
		Email:    "alice@example.com",
		Password: "secret",
		Name:     "Alice",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create user: status = %d, body = %s", w.Code, w.Body.String())
	}
	created := decodeData[model.User](t, w)
	if created.Role != model.RoleUser {
		t.Errorf("default role = %q, want %q", created.Role, model.RoleUser)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/users/"+itoa(created.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get user: status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPatch, "/api/v1/users/"+itoa(created.ID), map[string]string{"role": model.RoleAdmin})
	if w.Code != http.StatusOK {
		t.Fatalf("patch user: status = %d, body = %s", w.Code, w.Body.String())
	}
	updated := decodeData[model.User](t, w)
	if updated.Role != model.RoleAdmin {
		t.Errorf("role after patch = %q, want admin", updated.Role)
	}

	w = doJSON(t, r, http.MethodDelete, "/api/v1/users/"+itoa(created.ID), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete user: status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/users/"+itoa(created.ID), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get deleted user: status = %d, want 404", w.Code)
	}
}

func TestCreateUserValidation(t *testing.T) {
	_, r, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/users", CreateUserRequest{Email: "not-an-email"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	if errResp.Error.Code != "validation_error" {
		t.Errorf("error code = %q", errResp.Error.Code)
	}
	for _, field := range []string{"email", "password", "name"} {
		if _, ok := errResp.Error.Details[field]; !ok {
			t.Errorf("missing validation detail for %q", field)
		}
	}
}

func TestDuplicateEmailRejected(t *testing.T) {
	_, r, _ := newTestServer(t)

	req := CreateUserRequest{Email: "dup@example.com", Password: "x", Name: "Dup"}
	if w := doJSON(t, r, http.MethodPost, "/api/v1/users", req); w.Code != http.StatusCreated {
		t.Fatalf("first create: status = %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodPost, "/api/v1/users", req); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("duplicate create: status = %d, want 422", w.Code)
	}
}

func TestEventDeleteCascades(t *testing.T) {
	_, r, db := newTestServer(t)

	admin := testutil.CreateUser(t, db, "admin@example.com", model.RoleAdmin)
	user := testutil.CreateUser(t, db, "bob@example.com", model.RoleUser)
	event := testutil.CreateEvent(t, db, "Doomed Workshop", admin.ID)
	keep := testutil.CreateEvent(t, db, "Surviving Meetup", admin.ID)

	testutil.CreateParticipation(t, db, user.ID, testutil.EventRef(event.ID), model.StatusRegistered, sql.NullString{})
	kept := testutil.CreateParticipation(t, db, user.ID, testutil.EventRef(keep.ID), model.StatusPending, sql.NullString{})

	w := doJSON(t, r, http.MethodDelete, "/api/v1/events/"+itoa(event.ID), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete event: status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/participations", nil)
	ps := decodeData[[]ParticipationResponse](t, w)
	if len(ps) != 1 || ps[0].ID != kept.ID {
		t.Fatalf("participations after cascade = %+v, want only %d", ps, kept.ID)
	}

	// Projection was rebuilt synchronously; no summary references the
	// deleted event anymore.
	w = doJSON(t, r, http.MethodGet, "/api/v1/registrations/"+itoa(user.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get registration: status = %d", w.Code)
	}
	summary := decodeData[model.RegistrationSummary](t, w)
	for _, re := range summary.RegisteredEvents {
		if re.EventID == event.ID {
			t.Errorf("summary still references deleted event %d", event.ID)
		}
	}
	if summary.TotalRegistrations != 1 {
		t.Errorf("total registrations = %d, want 1", summary.TotalRegistrations)
	}
}

func TestParticipationStatusChangeClearsAttendance(t *testing.T) {
	_, r, db := newTestServer(t)

	admin := testutil.CreateUser(t, db, "admin@example.com", model.RoleAdmin)
	user := testutil.CreateUser(t, db, "carol@example.com", model.RoleUser)
	event := testutil.CreateEvent(t, db, "Webinar", admin.ID)

	p := testutil.CreateParticipation(t, db, user.ID, testutil.EventRef(event.ID),
		model.StatusRegistered, sql.NullString{String: model.AttendanceAttended, Valid: true})

	w := doJSON(t, r, http.MethodPatch, "/api/v1/participations/"+itoa(p.ID),
		map[string]string{"status": model.StatusPending})
	if w.Code != http.StatusOK {
		t.Fatalf("patch participation: status = %d, body = %s", w.Code, w.Body.String())
	}

	got := decodeData[ParticipationResponse](t, w)
	if got.Status != model.StatusPending {
		t.Errorf("status = %q, want Pending", got.Status)
	}
	if got.Attendance != nil {
		t.Errorf("attendance = %q, want cleared", *got.Attendance)
	}
}

func TestAttendanceRejectedForNonRegistered(t *testing.T) {
	_, r, db := newTestServer(t)

	user := testutil.CreateUser(t, db, "dave@example.com", model.RoleUser)
	admin := testutil.CreateUser(t, db, "admin@example.com", model.RoleAdmin)
	event := testutil.CreateEvent(t, db, "Meetup", admin.ID)
	eventID := event.ID

	w := doJSON(t, r, http.MethodPost, "/api/v1/participations", CreateParticipationRequest{
		UserID:     user.ID,
		EventID:    &eventID,
		Status:     model.StatusPending,
		Attendance: ptr(model.AttendanceAttended),
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
}

func TestListParticipationsPurgesOrphans(t *testing.T) {
	_, r, db := newTestServer(t)

	admin := testutil.CreateUser(t, db, "admin@example.com", model.RoleAdmin)
	user := testutil.CreateUser(t, db, "eve@example.com", model.RoleUser)
	event := testutil.CreateEvent(t, db, "Workshop", admin.ID)

	kept := testutil.CreateParticipation(t, db, user.ID, testutil.EventRef(event.ID), model.StatusRegistered, sql.NullString{})
	orphan := testutil.CreateParticipation(t, db, user.ID, sql.NullInt64{}, model.StatusPending, sql.NullString{})

	w := doJSON(t, r, http.MethodGet, "/api/v1/participations", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: status = %d", w.Code)
	}

	var resp struct {
		Data []ParticipationResponse `json:"data"`
		Meta *Meta                   `json:"meta"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Data) != 1 {
		t.Fatalf("listed participations = %d, want 1", len(resp.Data))
	}
	if resp.Meta == nil || resp.Meta.RemovedOrphans != 1 {
		t.Errorf("meta = %+v, want 1 removed orphan", resp.Meta)
	}

	// Listing does not just hide the orphan, it deletes the row.
	q := store.New(db)
	if _, err := q.GetParticipation(context.Background(), orphan.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("orphan row still present after listing: err = %v, want ErrNotFound", err)
	}
	if _, err := q.GetParticipation(context.Background(), kept.ID); err != nil {
		t.Errorf("valid participation removed by listing: %v", err)
	}
}

func TestSweepRemovesOrphansAndRebuilds(t *testing.T) {
	_, r, db := newTestServer(t)

	admin := testutil.CreateUser(t, db, "admin@example.com", model.RoleAdmin)
	user := testutil.CreateUser(t, db, "frank@example.com", model.RoleUser)
	event := testutil.CreateEvent(t, db, "Webinar", admin.ID)

	testutil.CreateParticipation(t, db, user.ID, testutil.EventRef(event.ID), model.StatusRegistered, sql.NullString{})
	testutil.CreateParticipation(t, db, user.ID, sql.NullInt64{}, model.StatusPending, sql.NullString{})
	testutil.CreateParticipation(t, db, user.ID, testutil.EventRef(99999), model.StatusAssigned, sql.NullString{})

	w := doJSON(t, r, http.MethodPost, "/api/v1/admin/sweep", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("sweep: status = %d, body = %s", w.Code, w.Body.String())
	}

	result := decodeData[SweepResponse](t, w)
	if result.RemovedParticipations != 2 {
		t.Errorf("removed = %d, want 2", result.RemovedParticipations)
	}
	if result.RebuiltUsers != 1 {
		t.Errorf("rebuilt users = %d, want 1", result.RebuiltUsers)
	}

	// The sweep leaves an audit trail entry with its counts.
	events, err := store.New(db).ListAuditEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListAuditEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("audit events = %d, want 1", len(events))
	}
	if events[0].Message != "manual consistency sweep" {
		t.Errorf("audit message = %q", events[0].Message)
	}
}

func TestEventCapacityMustBePositive(t *testing.T) {
	_, r, db := newTestServer(t)

	admin := testutil.CreateUser(t, db, "admin@example.com", model.RoleAdmin)

	// Zero capacity (the zero value of an omitted field) is rejected
	// up front, not left to the database constraint.
	w := doJSON(t, r, http.MethodPost, "/api/v1/events", CreateEventRequest{
		Title:     "Capacityless",
		Date:      "2026-11-01",
		Time:      "10:00",
		Type:      model.EventTypeMeetup,
		Capacity:  0,
		CreatedBy: admin.ID,
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("create with zero capacity: status = %d, body = %s", w.Code, w.Body.String())
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	if _, ok := errResp.Error.Details["capacity"]; !ok {
		t.Errorf("error details = %+v, want a capacity entry", errResp.Error.Details)
	}

	event := testutil.CreateEvent(t, db, "Sized", admin.ID)

	w = doJSON(t, r, http.MethodPatch, "/api/v1/events/"+itoa(event.ID), map[string]int64{"capacity": 0})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("patch to zero capacity: status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestStatusReportsCounts(t *testing.T) {
	_, r, db := newTestServer(t)

	admin := testutil.CreateUser(t, db, "admin@example.com", model.RoleAdmin)
	event := testutil.CreateEvent(t, db, "Counted", admin.ID)
	testutil.CreateParticipation(t, db, admin.ID, testutil.EventRef(event.ID), model.StatusPending, sql.NullString{})

	w := doJSON(t, r, http.MethodGet, "/api/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: code = %d", w.Code)
	}

	status := decodeData[StatusResponse](t, w)
	if status.Status != "ok" {
		t.Errorf("status = %q, want ok", status.Status)
	}
	if status.Events != 1 || status.Participations != 1 {
		t.Errorf("counts = %d events, %d participations, want 1/1", status.Events, status.Participations)
	}
}

func TestListRegistrationsCacheRoundTrip(t *testing.T) {
	h, r, db := newTestServer(t)

	admin := testutil.CreateUser(t, db, "admin@example.com", model.RoleAdmin)
	user := testutil.CreateUser(t, db, "grace@example.com", model.RoleUser)
	event := testutil.CreateEvent(t, db, "Meetup", admin.ID)
	testutil.CreateParticipation(t, db, user.ID, testutil.EventRef(event.ID), model.StatusRegistered, sql.NullString{})

	if _, err := h.rebuilder.RebuildUserRegistrations(context.Background()); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	decode := func(w *httptest.ResponseRecorder) (data []model.RegistrationSummary, meta *Meta) {
		t.Helper()
		var resp struct {
			Data []model.RegistrationSummary `json:"data"`
			Meta *Meta                       `json:"meta"`
		}
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		return resp.Data, resp.Meta
	}

	// First request fills the cache.
	w := doJSON(t, r, http.MethodGet, "/api/v1/registrations", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list registrations: status = %d", w.Code)
	}
	first, firstMeta := decode(w)
	if len(first) != 1 {
		t.Fatalf("summaries = %d, want 1", len(first))
	}
	if firstMeta == nil || firstMeta.Total != 1 {
		t.Fatalf("meta on miss = %+v, want total 1", firstMeta)
	}

	if _, err := h.cache.Get(context.Background(), cache.KeyRegistrations); err != nil {
		t.Fatalf("cache not filled after listing: %v", err)
	}

	// Second request serves the cached projection with the same shape.
	w = doJSON(t, r, http.MethodGet, "/api/v1/registrations", nil)
	second, secondMeta := decode(w)
	if len(second) != 1 || second[0].UserID != user.ID {
		t.Fatalf("cached summaries = %+v", second)
	}
	if secondMeta == nil || secondMeta.Total != 1 {
		t.Fatalf("meta on hit = %+v, want total 1", secondMeta)
	}
}

func TestHealthEndpoint(t *testing.T) {
	_, r, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health: status = %d", w.Code)
	}

	var status HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("decoding health: %v", err)
	}
	if status.Status != "healthy" {
		t.Errorf("status = %q, want healthy", status.Status)
	}
	if status.Checks["database"].Status != "healthy" {
		t.Errorf("database check = %+v", status.Checks["database"])
	}
}

func TestInvalidIDParam(t *testing.T) {
	_, r, _ := newTestServer(t)

	for _, path := range []string{
		"/api/v1/users/abc",
		"/api/v1/events/-1",
		"/api/v1/participations/1.5",
	} {
		if w := doJSON(t, r, http.MethodGet, path, nil); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, w.Code)
		}
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func ptr[T any](v T) *T { return &v }
