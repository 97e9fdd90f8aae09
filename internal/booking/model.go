package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusRequested Status = "requested"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
)

// Active reports whether the appointment occupies calendar capacity.
func (s Status) Active() bool {
	return s == StatusRequested || s == StatusConfirmed
}

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted || s == StatusNoShow
}

type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionCancel   Action = "cancel"
	ActionComplete Action = "complete"
	ActionNoShow   Action = "no_show"
)

// ParseAction maps an externally supplied action string onto the known set.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionConfirm, ActionCancel, ActionComplete, ActionNoShow:
		return Action(s), nil
	}
	return "", fmt.Errorf("%w: unknown action %q", ErrValidation, s)
}

// transitions is the full status state machine. Anything absent here is
// rejected with ErrInvalidTransition.
var transitions = map[Status]map[Action]Status{
	StatusRequested: {
		ActionConfirm: StatusConfirmed,
		ActionCancel:  StatusCancelled,
	},
	StatusConfirmed: {
		ActionCancel:   StatusCancelled,
		ActionComplete: StatusCompleted,
		ActionNoShow:   StatusNoShow,
	},
}

// NextStatus resolves (current, action) against the state machine.
func NextStatus(current Status, action Action) (Status, bool) {
	next, ok := transitions[current][action]
	return next, ok
}

// TimeSlot identifies a fixed-duration interval on the clinic calendar,
// formatted as zero-padded "HH:MM". The zero padding makes lexical order
// equal chronological order, which the repositories rely on for sorting.
type TimeSlot string

// ParseTimeSlot validates the "HH:MM" shape. Grid membership is checked
// separately by the calendar.
func ParseTimeSlot(s string) (TimeSlot, error) {
	if len(s) != 5 || s[2] != ':' {
		return "", fmt.Errorf("%w: time slot must be formatted HH:MM, got %q", ErrValidation, s)
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return "", fmt.Errorf("%w: invalid time slot %q", ErrValidation, s)
	}
	return TimeSlot(t.Format("15:04")), nil
}

// Minutes returns the slot's offset from midnight. The slot must have been
// produced by ParseTimeSlot or the grid.
func (ts TimeSlot) Minutes() int {
	t, err := time.Parse("15:04", string(ts))
	if err != nil {
		return 0
	}
	return t.Hour()*60 + t.Minute()
}

// DateOf truncates a timestamp to its civil date in UTC. All appointment
// dates are stored normalized this way.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateKey renders a normalized date for lock keys and logs.
func DateKey(date time.Time) string {
	return date.Format("2006-01-02")
}

type Appointment struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Date      time.Time // civil date, midnight UTC
	TimeSlot  TimeSlot
	Status    Status
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PatientRef and DoctorRef are the minimal profiles the Directory resolves.
type PatientRef struct {
	ID    uuid.UUID
	Name  string
	Phone string
}

type DoctorRef struct {
	ID        uuid.UUID
	Name      string
	Specialty string
}

// AppointmentDetail hydrates an appointment with the names the listing
// endpoints surface.
type AppointmentDetail struct {
	Appointment
	PatientName  string
	PatientPhone string
	DoctorName   string
	Specialty    string
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
