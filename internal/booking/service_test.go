package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (*Service, *MemoryRepository) {
	t.Helper()
	repo := NewMemoryRepository()
	cal := NewCalendar(repo, mustGrid(t))
	ledger := NewLedger(repo, cal, NewLocalLocker(), time.Second, zap.NewNop())
	svc := NewService(ledger, cal, repo, zap.NewNop())
	return svc, repo
}

func futureDate(days int) string {
	return time.Now().UTC().AddDate(0, 0, days).Format("2006-01-02")
}

func seedIdentities(repo *MemoryRepository) (patientID, doctorID uuid.UUID) {
	patientID, doctorID = uuid.New(), uuid.New()
	repo.AddPatient(PatientRef{ID: patientID, Name: "Ana"})
	repo.AddDoctor(DoctorRef{ID: doctorID, Name: "Dr. Grey", Specialty: "General"})
	return patientID, doctorID
}

func TestServiceCreateBooking(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	patientID, doctorID := seedIdentities(repo)

	appt, err := svc.CreateBooking(ctx, CreateBookingInput{
		PatientID: patientID,
		DoctorID:  doctorID,
		Date:      futureDate(7),
		TimeSlot:  "09:30",
		Notes:     "first visit",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusRequested, appt.Status)
	assert.Equal(t, "first visit", appt.Notes)
}

func TestServiceCreateValidation(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	patientID, doctorID := seedIdentities(repo)

	cases := []struct {
		name string
		in   CreateBookingInput
	}{
		{"bad date", CreateBookingInput{PatientID: patientID, DoctorID: doctorID, Date: "01-03-2024", TimeSlot: "09:00"}},
		{"past date", CreateBookingInput{PatientID: patientID, DoctorID: doctorID, Date: "2020-01-01", TimeSlot: "09:00"}},
		{"bad slot", CreateBookingInput{PatientID: patientID, DoctorID: doctorID, Date: futureDate(7), TimeSlot: "9am"}},
		{"off-grid slot", CreateBookingInput{PatientID: patientID, DoctorID: doctorID, Date: futureDate(7), TimeSlot: "09:15"}},
		{"outside hours", CreateBookingInput{PatientID: patientID, DoctorID: doctorID, Date: futureDate(7), TimeSlot: "21:00"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateBooking(ctx, tc.in)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestServiceCreateUnknownIdentities(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	patientID, doctorID := seedIdentities(repo)

	_, err := svc.CreateBooking(ctx, CreateBookingInput{
		PatientID: uuid.New(), DoctorID: doctorID, Date: futureDate(7), TimeSlot: "09:00",
	})
	require.ErrorIs(t, err, ErrPatientNotFound)

	_, err = svc.CreateBooking(ctx, CreateBookingInput{
		PatientID: patientID, DoctorID: uuid.New(), Date: futureDate(7), TimeSlot: "09:00",
	})
	require.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestServiceTransitionUnknownAction(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.TransitionBooking(context.Background(), uuid.New(), "snooze")
	require.ErrorIs(t, err, ErrValidation)
}

func TestServiceRescheduleFlow(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	patientID, doctorID := seedIdentities(repo)

	appt, err := svc.CreateBooking(ctx, CreateBookingInput{
		PatientID: patientID, DoctorID: doctorID, Date: futureDate(7), TimeSlot: "09:00",
	})
	require.NoError(t, err)

	moved, err := svc.RescheduleBooking(ctx, RescheduleInput{
		AppointmentID: appt.ID, Date: futureDate(8), TimeSlot: "10:00",
	})
	require.NoError(t, err)
	assert.Equal(t, TimeSlot("10:00"), moved.TimeSlot)

	_, err = svc.RescheduleBooking(ctx, RescheduleInput{
		AppointmentID: appt.ID, Date: futureDate(8), TimeSlot: "10:15",
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestServiceDoctorSchedule(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	patientID, doctorID := seedIdentities(repo)

	_, err := svc.CreateBooking(ctx, CreateBookingInput{
		PatientID: patientID, DoctorID: doctorID, Date: futureDate(7), TimeSlot: "09:00",
	})
	require.NoError(t, err)

	items, err := svc.DoctorSchedule(ctx, doctorID, "", "")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = svc.DoctorSchedule(ctx, doctorID, futureDate(9), futureDate(8))
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.DoctorSchedule(ctx, uuid.New(), "", "")
	require.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestServiceFreeSlots(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	patientID, doctorID := seedIdentities(repo)

	date := futureDate(7)
	_, err := svc.CreateBooking(ctx, CreateBookingInput{
		PatientID: patientID, DoctorID: doctorID, Date: date, TimeSlot: "09:00",
	})
	require.NoError(t, err)

	seq, err := svc.DoctorFreeSlots(ctx, doctorID, date)
	require.NoError(t, err)

	var free []TimeSlot
	for s := range seq {
		free = append(free, s)
	}
	assert.Len(t, free, 15)
	assert.NotContains(t, free, TimeSlot("09:00"))
}

// erroringDirectory simulates an identity backend with an unhealthy store.
type erroringDirectory struct{}

func (erroringDirectory) ResolvePatient(context.Context, uuid.UUID) (*PatientRef, error) {
	return nil, errors.New("connection reset by peer")
}

func (erroringDirectory) ResolveDoctor(context.Context, uuid.UUID) (*DoctorRef, error) {
	return nil, errors.New("connection reset by peer")
}

func TestServiceMasksInternalErrors(t *testing.T) {
	repo := NewMemoryRepository()
	cal := NewCalendar(repo, mustGrid(t))
	ledger := NewLedger(repo, cal, NewLocalLocker(), time.Second, zap.NewNop())
	svc := NewService(ledger, cal, erroringDirectory{}, zap.NewNop())

	_, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		PatientID: uuid.New(), DoctorID: uuid.New(), Date: futureDate(7), TimeSlot: "09:00",
	})
	require.ErrorIs(t, err, ErrInternal)
	assert.NotContains(t, err.Error(), "connection reset")
}
