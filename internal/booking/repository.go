package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository contains all DB interactions needed by the calendar and ledger.
// Implementations must report missing rows with the package sentinels and
// translate storage-level uniqueness violations into ErrSlotConflict or
// ErrDuplicateBooking.
type Repository interface {
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// Conflict checks. exclude carries the appointment being rescheduled,
	// or uuid.Nil.
	SlotTaken(ctx context.Context, doctorID uuid.UUID, date time.Time, slot TimeSlot, exclude uuid.UUID) (bool, error)
	HasActiveBooking(ctx context.Context, patientID, doctorID uuid.UUID, date time.Time, exclude uuid.UUID) (bool, error)
	BookedSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]TimeSlot, error)

	// Creation and updates. UpdateStatus, UpdateSchedule, and UpdateNotes are
	// compare-and-set on the current status: they return
	// ErrAppointmentNotFound when no row matches (id, expect).
	InsertAppointment(ctx context.Context, a *Appointment) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)
	UpdateSchedule(ctx context.Context, id uuid.UUID, expect Status, date time.Time, slot TimeSlot) (*Appointment, error)
	UpdateNotes(ctx context.Context, id uuid.UUID, expect Status, notes string) (*Appointment, error)

	// Listings, ordered by (date, time_slot) descending.
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]AppointmentDetail, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]AppointmentDetail, error)
	ListAll(ctx context.Context) ([]AppointmentDetail, error)

	// No-show sweeper.
	FindStaleConfirmed(ctx context.Context, before time.Time) ([]Appointment, error)

	// Audit trail.
	InsertEvent(ctx context.Context, ev EventLog) error
}

// Directory resolves patient and doctor identities. It is owned by the
// identity subsystem; the booking service is its only caller here.
// Implementations report unknown ids with ErrPatientNotFound and
// ErrDoctorNotFound.
type Directory interface {
	ResolvePatient(ctx context.Context, id uuid.UUID) (*PatientRef, error)
	ResolveDoctor(ctx context.Context, id uuid.UUID) (*DoctorRef, error)
}
