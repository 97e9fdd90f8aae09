package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustGrid(t *testing.T) SlotGrid {
	t.Helper()
	grid, err := NewSlotGrid("09:00", "17:00", 30*time.Minute)
	require.NoError(t, err)
	return grid
}

func TestNewSlotGridRejectsBadTemplates(t *testing.T) {
	_, err := NewSlotGrid("17:00", "09:00", 30*time.Minute)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewSlotGrid("09:00", "17:00", 0)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewSlotGrid("nine", "17:00", 30*time.Minute)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSlotGridSlots(t *testing.T) {
	grid := mustGrid(t)

	var slots []TimeSlot
	for s := range grid.Slots() {
		slots = append(slots, s)
	}

	require.Len(t, slots, 16)
	assert.Equal(t, TimeSlot("09:00"), slots[0])
	assert.Equal(t, TimeSlot("09:30"), slots[1])
	assert.Equal(t, TimeSlot("16:30"), slots[15])

	// Restartable: a second pass yields the same sequence.
	var again []TimeSlot
	for s := range grid.Slots() {
		again = append(again, s)
	}
	assert.Equal(t, slots, again)
}

func TestSlotGridContains(t *testing.T) {
	grid := mustGrid(t)

	assert.True(t, grid.Contains("09:00"))
	assert.True(t, grid.Contains("16:30"))
	assert.False(t, grid.Contains("08:30"), "before opening")
	assert.False(t, grid.Contains("17:00"), "closing time is exclusive")
	assert.False(t, grid.Contains("09:15"), "off the 30-minute grid")
}

func TestCalendarFreeSlots(t *testing.T) {
	repo := NewMemoryRepository()
	cal := NewCalendar(repo, mustGrid(t))
	doctorID := uuid.New()
	date := DateOf(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	for _, slot := range []TimeSlot{"09:30", "11:00"} {
		require.NoError(t, repo.InsertAppointment(context.Background(), &Appointment{
			ID: uuid.New(), PatientID: uuid.New(), DoctorID: doctorID,
			Date: date, TimeSlot: slot, Status: StatusRequested,
		}))
	}
	// Cancelled bookings release their slot.
	require.NoError(t, repo.InsertAppointment(context.Background(), &Appointment{
		ID: uuid.New(), PatientID: uuid.New(), DoctorID: doctorID,
		Date: date, TimeSlot: "10:00", Status: StatusCancelled,
	}))

	seq, err := cal.FreeSlots(context.Background(), doctorID, date)
	require.NoError(t, err)

	var free []TimeSlot
	for s := range seq {
		free = append(free, s)
	}

	require.Len(t, free, 14)
	assert.NotContains(t, free, TimeSlot("09:30"))
	assert.NotContains(t, free, TimeSlot("11:00"))
	assert.Contains(t, free, TimeSlot("10:00"))

	// Ascending order.
	for i := 1; i < len(free); i++ {
		assert.Less(t, free[i-1], free[i])
	}
}

func TestCalendarIsFree(t *testing.T) {
	repo := NewMemoryRepository()
	cal := NewCalendar(repo, mustGrid(t))
	doctorID := uuid.New()
	date := DateOf(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	apptID := uuid.New()

	require.NoError(t, repo.InsertAppointment(context.Background(), &Appointment{
		ID: apptID, PatientID: uuid.New(), DoctorID: doctorID,
		Date: date, TimeSlot: "09:00", Status: StatusConfirmed,
	}))

	free, err := cal.IsFree(context.Background(), doctorID, date, "09:00", uuid.Nil)
	require.NoError(t, err)
	assert.False(t, free)

	free, err = cal.IsFree(context.Background(), doctorID, date, "09:30", uuid.Nil)
	require.NoError(t, err)
	assert.True(t, free)

	// Excluding the occupying appointment frees its own slot (reschedule path).
	free, err = cal.IsFree(context.Background(), doctorID, date, "09:00", apptID)
	require.NoError(t, err)
	assert.True(t, free)

	// Another doctor's calendar is unaffected.
	free, err = cal.IsFree(context.Background(), uuid.New(), date, "09:00", uuid.Nil)
	require.NoError(t, err)
	assert.True(t, free)
}
