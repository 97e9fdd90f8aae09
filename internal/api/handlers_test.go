package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medibook/medibook/internal/booking"
	"github.com/medibook/medibook/internal/directory"
)

type testEnv struct {
	handler   http.Handler
	patientID uuid.UUID
	doctorID  uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zap.NewNop()

	repo := booking.NewMemoryRepository()
	grid, err := booking.NewSlotGrid("09:00", "17:00", 30*time.Minute)
	require.NoError(t, err)
	cal := booking.NewCalendar(repo, grid)
	ledger := booking.NewLedger(repo, cal, booking.NewLocalLocker(), time.Second, log)

	dir := directory.NewService(directory.NewMemoryStore(), log)
	svc := booking.NewService(ledger, cal, dir, log)

	handler := NewRouter(RouterConfig{
		Booking:   svc,
		Directory: dir,
		Log:       log,
		Env:       "test",
		Version:   "test",
	})

	ctx := context.Background()
	p, err := dir.RegisterPatient(ctx, directory.RegisterInput{
		Name: "Ana", Email: "ana@example.com", Password: "longenough", Phone: "555-0101",
	})
	require.NoError(t, err)
	d, err := dir.RegisterDoctor(ctx, directory.RegisterInput{
		Name: "Dr. Grey", Email: "grey@example.com", Password: "longenough", Specialization: "General",
	})
	require.NoError(t, err)

	return &testEnv{handler: handler, patientID: p.ID, doctorID: d.ID}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) book(t *testing.T, date, slot string) AppointmentResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/appointments", CreateAppointmentRequest{
		PatientID: e.patientID.String(),
		DoctorID:  e.doctorID.String(),
		Date:      date,
		TimeSlot:  slot,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func futureDate(days int) string {
	return time.Now().UTC().AddDate(0, 0, days).Format("2006-01-02")
}

func TestCreateAppointmentEndpoint(t *testing.T) {
	env := newTestEnv(t)
	date := futureDate(7)

	resp := env.book(t, date, "09:00")
	assert.Equal(t, "requested", resp.Status)
	assert.Equal(t, date, resp.Date)

	// Same slot again: conflict.
	rec := env.do(t, http.MethodPost, "/api/appointments", CreateAppointmentRequest{
		PatientID: uuid.NewString(), DoctorID: env.doctorID.String(), Date: date, TimeSlot: "09:00",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code, "unknown patient resolves first")

	rec = env.do(t, http.MethodPost, "/api/appointments", CreateAppointmentRequest{
		PatientID: env.patientID.String(), DoctorID: env.doctorID.String(), Date: date, TimeSlot: "09:00",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "slot_conflict", errResp.Error)
}

func TestCreateAppointmentValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/appointments", CreateAppointmentRequest{
		PatientID: "not-a-uuid", DoctorID: env.doctorID.String(), Date: futureDate(7), TimeSlot: "09:00",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/appointments", CreateAppointmentRequest{
		PatientID: env.patientID.String(), DoctorID: env.doctorID.String(), Date: "2020-01-01", TimeSlot: "09:00",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "validation_failed", errResp.Error)
}

func TestTransitionEndpoints(t *testing.T) {
	env := newTestEnv(t)
	appt := env.book(t, futureDate(7), "09:00")

	rec := env.do(t, http.MethodPost, fmt.Sprintf("/api/appointments/%s/confirm", appt.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/appointments/%s/cancel", appt.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Terminal: cancelling again is rejected.
	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/appointments/%s/cancel", appt.ID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "invalid_status_transition", errResp.Error)

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/appointments/%s/confirm", uuid.New()), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRescheduleEndpoint(t *testing.T) {
	env := newTestEnv(t)
	appt := env.book(t, futureDate(7), "09:00")
	env.book(t, futureDate(7), "10:00")

	// Target slot is occupied.
	rec := env.do(t, http.MethodPut, fmt.Sprintf("/api/appointments/%s/schedule", appt.ID), RescheduleRequest{
		Date: futureDate(7), TimeSlot: "10:00",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPut, fmt.Sprintf("/api/appointments/%s/schedule", appt.ID), RescheduleRequest{
		Date: futureDate(8), TimeSlot: "11:30",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, appt.ID, resp.ID)
	assert.Equal(t, "11:30", resp.TimeSlot)
	assert.Equal(t, futureDate(8), resp.Date)
}

func TestListEndpointsOrdering(t *testing.T) {
	env := newTestEnv(t)
	env.book(t, futureDate(7), "09:00")
	env.book(t, futureDate(8), "11:00")

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/api/appointments/doctor/%s", env.doctorID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var items []AppointmentDetailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, futureDate(8), items[0].Date)
	assert.Equal(t, "Dr. Grey", items[0].DoctorName)
	assert.Equal(t, "Ana", items[0].PatientName)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/appointments/patient/%s", env.patientID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	assert.Len(t, items, 2)

	// Admin overview: every appointment, same ordering.
	rec = env.do(t, http.MethodGet, "/api/appointments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, futureDate(8), items[0].Date)
	assert.Equal(t, futureDate(7), items[1].Date)
	assert.Equal(t, "Ana", items[0].PatientName)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/appointments/doctor/%s", uuid.New()), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStorageTimeoutStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	mapBookingError(rec, booking.ErrStorageTimeout)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "storage_timeout", errResp.Error)
}

func TestFreeSlotsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	date := futureDate(7)
	env.book(t, date, "09:00")

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/api/doctors/%s/free-slots?date=%s", env.doctorID, date), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp FreeSlotsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Slots, 15)
	assert.NotContains(t, resp.Slots, "09:00")
	assert.Equal(t, "09:30", resp.Slots[0])
}

func TestAuthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/register/patient", RegisterRequest{
		Name: "Ben", Email: "ben@example.com", Password: "longenough",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/auth/register/patient", RegisterRequest{
		Name: "Ben Again", Email: "ben@example.com", Password: "longenough",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/login/patient", LoginRequest{
		Email: "ben@example.com", Password: "longenough",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/login/patient", LoginRequest{
		Email: "ben@example.com", Password: "wrong password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/patients", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var patients []PatientResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &patients))
	assert.Len(t, patients, 2)
}

func TestHealthLiveness(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
