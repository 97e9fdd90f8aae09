package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	EventAppointmentRequested   = "APPOINTMENT_REQUESTED"
	EventAppointmentConfirmed   = "APPOINTMENT_CONFIRMED"
	EventAppointmentCancelled   = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted   = "APPOINTMENT_COMPLETED"
	EventAppointmentNoShow      = "APPOINTMENT_NO_SHOW"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	EventAppointmentNotes       = "APPOINTMENT_NOTES_UPDATED"
)

var transitionEvents = map[Action]string{
	ActionConfirm:  EventAppointmentConfirmed,
	ActionCancel:   EventAppointmentCancelled,
	ActionComplete: EventAppointmentCompleted,
	ActionNoShow:   EventAppointmentNoShow,
}

// Ledger is the sole authority for creating and mutating appointment
// records. Mutations targeting a (doctor, date) pair run under that pair's
// lock so the check-then-write sequence is atomic; listings run lock-free.
type Ledger struct {
	repo     Repository
	calendar *Calendar
	locker   Locker
	timeout  time.Duration
	log      *zap.Logger
}

func NewLedger(repo Repository, calendar *Calendar, locker Locker, storageTimeout time.Duration, log *zap.Logger) *Ledger {
	return &Ledger{
		repo:     repo,
		calendar: calendar,
		locker:   locker,
		timeout:  storageTimeout,
		log:      log,
	}
}

// bound caps one logical storage operation at the configured timeout.
func (l *Ledger) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, l.timeout)
}

// mapStorage translates deadline expiry into the documented timeout error.
func mapStorage(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrStorageTimeout
	}
	return err
}

// Create reserves a slot for a patient. Conflict and duplicate checks plus
// the insert run inside the doctor-day lock; a SlotConflict is returned
// immediately, never retried here.
func (l *Ledger) Create(ctx context.Context, patientID, doctorID uuid.UUID, date time.Time, slot TimeSlot, notes string) (*Appointment, error) {
	ctx, cancel := l.bound(ctx)
	defer cancel()

	date = DateOf(date)
	var created *Appointment

	err := l.locker.WithDoctorDayLock(ctx, doctorID, date, func(lockCtx context.Context) error {
		free, err := l.calendar.IsFree(lockCtx, doctorID, date, slot, uuid.Nil)
		if err != nil {
			return err
		}
		if !free {
			return ErrSlotConflict
		}

		dup, err := l.repo.HasActiveBooking(lockCtx, patientID, doctorID, date, uuid.Nil)
		if err != nil {
			return fmt.Errorf("check duplicate booking: %w", err)
		}
		if dup {
			return ErrDuplicateBooking
		}

		now := time.Now()
		appt := &Appointment{
			ID:        uuid.New(),
			PatientID: patientID,
			DoctorID:  doctorID,
			Date:      date,
			TimeSlot:  slot,
			Status:    StatusRequested,
			Notes:     notes,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := l.repo.InsertAppointment(lockCtx, appt); err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}

		created = appt
		l.logEvent(lockCtx, appt.ID, EventAppointmentRequested, map[string]any{
			"patient_id": patientID.String(),
			"doctor_id":  doctorID.String(),
			"date":       DateKey(date),
			"time_slot":  string(slot),
		})
		return nil
	})
	if err != nil {
		return nil, mapStorage(err)
	}

	return created, nil
}

// Transition applies one state-machine action. The status update is
// compare-and-set on the observed status, so a concurrent transition makes
// this one fail rather than overwrite it.
func (l *Ledger) Transition(ctx context.Context, id uuid.UUID, action Action) (*Appointment, error) {
	ctx, cancel := l.bound(ctx)
	defer cancel()

	appt, err := l.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, mapStorage(fmt.Errorf("load appointment: %w", err))
	}

	next, ok := NextStatus(appt.Status, action)
	if !ok {
		return nil, fmt.Errorf("%w: cannot %s an appointment in status %q", ErrInvalidTransition, action, appt.Status)
	}

	updated, err := l.repo.UpdateStatus(ctx, id, appt.Status, next)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// CAS miss: the row raced to another status between load and
			// update. Report it as an illegal transition from the status we
			// observe now.
			return nil, l.reportStatusRace(ctx, id, string(action))
		}
		return nil, mapStorage(fmt.Errorf("update status: %w", err))
	}

	l.logEvent(ctx, updated.ID, transitionEvents[action], map[string]any{
		"from": string(appt.Status),
		"to":   string(next),
	})
	return updated, nil
}

func (l *Ledger) reportStatusRace(ctx context.Context, id uuid.UUID, verb string) error {
	current, err := l.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return mapStorage(err)
	}
	return fmt.Errorf("%w: cannot %s an appointment in status %q", ErrInvalidTransition, verb, current.Status)
}

// Reschedule moves an active appointment to a new slot. The conflict check
// excludes the appointment itself and runs under the destination day's lock.
// Vacating the old slot cannot violate any invariant, so the old day needs
// no lock.
func (l *Ledger) Reschedule(ctx context.Context, id uuid.UUID, newDate time.Time, newSlot TimeSlot) (*Appointment, error) {
	ctx, cancel := l.bound(ctx)
	defer cancel()

	appt, err := l.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, mapStorage(fmt.Errorf("load appointment: %w", err))
	}
	if !appt.Status.Active() {
		return nil, fmt.Errorf("%w: cannot reschedule an appointment in status %q", ErrInvalidTransition, appt.Status)
	}

	newDate = DateOf(newDate)
	var updated *Appointment

	err = l.locker.WithDoctorDayLock(ctx, appt.DoctorID, newDate, func(lockCtx context.Context) error {
		free, err := l.calendar.IsFree(lockCtx, appt.DoctorID, newDate, newSlot, appt.ID)
		if err != nil {
			return err
		}
		if !free {
			return ErrSlotConflict
		}

		dup, err := l.repo.HasActiveBooking(lockCtx, appt.PatientID, appt.DoctorID, newDate, appt.ID)
		if err != nil {
			return fmt.Errorf("check duplicate booking: %w", err)
		}
		if dup {
			return ErrDuplicateBooking
		}

		moved, err := l.repo.UpdateSchedule(lockCtx, appt.ID, appt.Status, newDate, newSlot)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return l.reportStatusRace(lockCtx, appt.ID, "reschedule")
			}
			return fmt.Errorf("update schedule: %w", err)
		}

		updated = moved
		l.logEvent(lockCtx, appt.ID, EventAppointmentRescheduled, map[string]any{
			"from_date": DateKey(appt.Date),
			"from_slot": string(appt.TimeSlot),
			"to_date":   DateKey(newDate),
			"to_slot":   string(newSlot),
		})
		return nil
	})
	if err != nil {
		return nil, mapStorage(err)
	}

	return updated, nil
}

// UpdateNotes rewrites the free-form notes. Notes are mutable only while the
// appointment is active.
func (l *Ledger) UpdateNotes(ctx context.Context, id uuid.UUID, notes string) (*Appointment, error) {
	ctx, cancel := l.bound(ctx)
	defer cancel()

	appt, err := l.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, mapStorage(fmt.Errorf("load appointment: %w", err))
	}
	if !appt.Status.Active() {
		return nil, fmt.Errorf("%w: cannot edit notes of an appointment in status %q", ErrInvalidTransition, appt.Status)
	}

	updated, err := l.repo.UpdateNotes(ctx, id, appt.Status, notes)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, l.reportStatusRace(ctx, id, "edit notes of")
		}
		return nil, mapStorage(fmt.Errorf("update notes: %w", err))
	}

	l.logEvent(ctx, id, EventAppointmentNotes, map[string]any{})
	return updated, nil
}

// ListByDoctor returns the doctor's appointments inside [from, to], most
// recent first.
func (l *Ledger) ListByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]AppointmentDetail, error) {
	ctx, cancel := l.bound(ctx)
	defer cancel()

	items, err := l.repo.ListByDoctor(ctx, doctorID, DateOf(from), DateOf(to))
	if err != nil {
		return nil, mapStorage(fmt.Errorf("list by doctor: %w", err))
	}
	return items, nil
}

// ListByPatient returns all of the patient's appointments, most recent first.
func (l *Ledger) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]AppointmentDetail, error) {
	ctx, cancel := l.bound(ctx)
	defer cancel()

	items, err := l.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, mapStorage(fmt.Errorf("list by patient: %w", err))
	}
	return items, nil
}

// ListAll returns every appointment in the system, most recent first. It
// backs the admin overview.
func (l *Ledger) ListAll(ctx context.Context) ([]AppointmentDetail, error) {
	ctx, cancel := l.bound(ctx)
	defer cancel()

	items, err := l.repo.ListAll(ctx)
	if err != nil {
		return nil, mapStorage(fmt.Errorf("list all appointments: %w", err))
	}
	return items, nil
}

// SweepNoShows marks confirmed appointments dated before the cutoff as
// no-shows. Intended to be called periodically by the worker.
func (l *Ledger) SweepNoShows(ctx context.Context, before time.Time) (int, error) {
	stale, err := l.repo.FindStaleConfirmed(ctx, DateOf(before))
	if err != nil {
		return 0, mapStorage(fmt.Errorf("find stale confirmed appointments: %w", err))
	}

	swept := 0
	for _, appt := range stale {
		if _, err := l.Transition(ctx, appt.ID, ActionNoShow); err != nil {
			if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrAppointmentNotFound) {
				continue
			}
			l.log.Warn("no-show sweep failed for appointment",
				zap.String("appointment_id", appt.ID.String()),
				zap.Error(err),
			)
			continue
		}
		swept++
	}
	return swept, nil
}

func (l *Ledger) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		l.log.Warn("marshal event payload", zap.String("event_type", eventType), zap.Error(err))
		data = nil
	}

	apptID := appointmentID
	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := l.repo.InsertEvent(ctx, ev); err != nil {
		l.log.Warn("insert event log",
			zap.String("event_type", eventType),
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err),
		)
	}
}
