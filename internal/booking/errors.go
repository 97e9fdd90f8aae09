package booking

import "errors"

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotConflict means the (doctor, date, slot) triple already carries an
	// active appointment.
	ErrSlotConflict = errors.New("slot already has an active appointment")

	// ErrDuplicateBooking means the patient already holds an active
	// appointment with that doctor on that date.
	ErrDuplicateBooking = errors.New("patient already has an active appointment with this doctor that day")

	// ErrInvalidTransition is wrapped with the current status and requested
	// action at the point of rejection.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDayBusy is returned when the per-doctor-day lock could not be
	// acquired. Callers may retry; the ledger never does.
	ErrDayBusy = errors.New("doctor's calendar is being modified, please retry")

	// ErrStorageTimeout replaces context.DeadlineExceeded on bounded storage
	// calls.
	ErrStorageTimeout = errors.New("storage operation timed out")

	ErrValidation = errors.New("validation failed")

	// ErrInternal is the only thing the booking service surfaces for
	// unexpected storage failures. The cause is logged, never returned.
	ErrInternal = errors.New("internal error")
)

// domainSentinels is the externally documented taxonomy. Anything outside it
// is masked as ErrInternal at the service boundary.
var domainSentinels = []error{
	ErrPatientNotFound,
	ErrDoctorNotFound,
	ErrAppointmentNotFound,
	ErrSlotConflict,
	ErrDuplicateBooking,
	ErrInvalidTransition,
	ErrDayBusy,
	ErrStorageTimeout,
	ErrValidation,
}

func isDomainErr(err error) bool {
	for _, sentinel := range domainSentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
