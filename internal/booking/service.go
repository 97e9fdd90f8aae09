package booking

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// Service is the request-facing orchestrator. It validates inputs, resolves
// identities via the Directory (its sole caller), delegates to the ledger,
// and guarantees that nothing outside the documented error taxonomy escapes.
type Service struct {
	ledger    *Ledger
	calendar  *Calendar
	directory Directory
	log       *zap.Logger
}

func NewService(ledger *Ledger, calendar *Calendar, directory Directory, log *zap.Logger) *Service {
	return &Service{
		ledger:    ledger,
		calendar:  calendar,
		directory: directory,
		log:       log,
	}
}

type CreateBookingInput struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Date      string // YYYY-MM-DD
	TimeSlot  string // HH:MM
	Notes     string
}

type RescheduleInput struct {
	AppointmentID uuid.UUID
	Date          string
	TimeSlot      string
}

func (s *Service) CreateBooking(ctx context.Context, in CreateBookingInput) (*Appointment, error) {
	date, err := parseDate(in.Date)
	if err != nil {
		return nil, err
	}
	if date.Before(DateOf(time.Now())) {
		return nil, fmt.Errorf("%w: date %s is in the past", ErrValidation, in.Date)
	}
	slot, err := s.gridSlot(in.TimeSlot)
	if err != nil {
		return nil, err
	}

	if _, err := s.directory.ResolvePatient(ctx, in.PatientID); err != nil {
		return nil, s.mask(err, "resolve patient")
	}
	if _, err := s.directory.ResolveDoctor(ctx, in.DoctorID); err != nil {
		return nil, s.mask(err, "resolve doctor")
	}

	appt, err := s.ledger.Create(ctx, in.PatientID, in.DoctorID, date, slot, in.Notes)
	if err != nil {
		return nil, s.mask(err, "create booking")
	}
	return appt, nil
}

func (s *Service) TransitionBooking(ctx context.Context, id uuid.UUID, action string) (*Appointment, error) {
	act, err := ParseAction(action)
	if err != nil {
		return nil, err
	}

	appt, err := s.ledger.Transition(ctx, id, act)
	if err != nil {
		return nil, s.mask(err, "transition booking")
	}
	return appt, nil
}

func (s *Service) RescheduleBooking(ctx context.Context, in RescheduleInput) (*Appointment, error) {
	date, err := parseDate(in.Date)
	if err != nil {
		return nil, err
	}
	if date.Before(DateOf(time.Now())) {
		return nil, fmt.Errorf("%w: date %s is in the past", ErrValidation, in.Date)
	}
	slot, err := s.gridSlot(in.TimeSlot)
	if err != nil {
		return nil, err
	}

	appt, err := s.ledger.Reschedule(ctx, in.AppointmentID, date, slot)
	if err != nil {
		return nil, s.mask(err, "reschedule booking")
	}
	return appt, nil
}

func (s *Service) UpdateBookingNotes(ctx context.Context, id uuid.UUID, notes string) (*Appointment, error) {
	appt, err := s.ledger.UpdateNotes(ctx, id, notes)
	if err != nil {
		return nil, s.mask(err, "update booking notes")
	}
	return appt, nil
}

// DoctorSchedule lists a doctor's appointments over [from, to]. Empty bounds
// default to an open range.
func (s *Service) DoctorSchedule(ctx context.Context, doctorID uuid.UUID, fromStr, toStr string) ([]AppointmentDetail, error) {
	from := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

	var err error
	if fromStr != "" {
		if from, err = parseDate(fromStr); err != nil {
			return nil, err
		}
	}
	if toStr != "" {
		if to, err = parseDate(toStr); err != nil {
			return nil, err
		}
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: date range end %s precedes start %s", ErrValidation, toStr, fromStr)
	}

	if _, err := s.directory.ResolveDoctor(ctx, doctorID); err != nil {
		return nil, s.mask(err, "resolve doctor")
	}

	items, err := s.ledger.ListByDoctor(ctx, doctorID, from, to)
	if err != nil {
		return nil, s.mask(err, "list doctor schedule")
	}
	return items, nil
}

func (s *Service) PatientBookings(ctx context.Context, patientID uuid.UUID) ([]AppointmentDetail, error) {
	if _, err := s.directory.ResolvePatient(ctx, patientID); err != nil {
		return nil, s.mask(err, "resolve patient")
	}

	items, err := s.ledger.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, s.mask(err, "list patient bookings")
	}
	return items, nil
}

// AllBookings lists every appointment with patient and doctor names, most
// recent first. This is the admin overview; it takes no identity filter.
func (s *Service) AllBookings(ctx context.Context) ([]AppointmentDetail, error) {
	items, err := s.ledger.ListAll(ctx)
	if err != nil {
		return nil, s.mask(err, "list all bookings")
	}
	return items, nil
}

// DoctorFreeSlots enumerates the doctor's unbooked slots for a date,
// ascending.
func (s *Service) DoctorFreeSlots(ctx context.Context, doctorID uuid.UUID, dateStr string) (iter.Seq[TimeSlot], error) {
	date, err := parseDate(dateStr)
	if err != nil {
		return nil, err
	}

	if _, err := s.directory.ResolveDoctor(ctx, doctorID); err != nil {
		return nil, s.mask(err, "resolve doctor")
	}

	slots, err := s.calendar.FreeSlots(ctx, doctorID, date)
	if err != nil {
		return nil, s.mask(err, "enumerate free slots")
	}
	return slots, nil
}

// mask passes domain errors through untouched and hides everything else
// behind ErrInternal, logging the cause for diagnostics.
func (s *Service) mask(err error, op string) error {
	if isDomainErr(err) {
		return err
	}
	s.log.Error("booking service internal failure", zap.String("op", op), zap.Error(err))
	return ErrInternal
}

func parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be formatted YYYY-MM-DD, got %q", ErrValidation, s)
	}
	return t, nil
}

func (s *Service) gridSlot(raw string) (TimeSlot, error) {
	slot, err := ParseTimeSlot(raw)
	if err != nil {
		return "", err
	}
	if !s.calendar.Grid().Contains(slot) {
		return "", fmt.Errorf("%w: time slot %s is outside clinic hours", ErrValidation, slot)
	}
	return slot, nil
}
