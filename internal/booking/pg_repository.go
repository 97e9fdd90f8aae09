package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Constraint names from migrations/001_init.sql. Violations are translated
// into the domain taxonomy so the unique indexes act as a second line of
// defense under the doctor-day lock.
const (
	slotActiveConstraint       = "ux_appointments_slot_active"
	patientDayActiveConstraint = "ux_appointments_patient_day_active"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `id, patient_id, doctor_id, date, time_slot, status, notes, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.Date,
		&a.TimeSlot,
		&a.Status,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	a.Date = DateOf(a.Date)
	return &a, nil
}

func scanDetail(rows pgx.Rows) (*AppointmentDetail, error) {
	var d AppointmentDetail
	err := rows.Scan(
		&d.ID,
		&d.PatientID,
		&d.DoctorID,
		&d.Date,
		&d.TimeSlot,
		&d.Status,
		&d.Notes,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.PatientName,
		&d.PatientPhone,
		&d.DoctorName,
		&d.Specialty,
	)
	if err != nil {
		return nil, err
	}
	d.Date = DateOf(d.Date)
	return &d, nil
}

// mapUniqueViolation turns index violations into domain errors.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case slotActiveConstraint:
			return ErrSlotConflict
		case patientDayActiveConstraint:
			return ErrDuplicateBooking
		}
	}
	return err
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) SlotTaken(ctx context.Context, doctorID uuid.UUID, date time.Time, slot TimeSlot, exclude uuid.UUID) (bool, error) {
	var taken bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
			  AND date = $2
			  AND time_slot = $3
			  AND status IN ('requested', 'confirmed')
			  AND id <> $4
		)
	`, doctorID, date, slot, exclude).Scan(&taken)
	if err != nil {
		return false, err
	}
	return taken, nil
}

func (r *PgRepository) HasActiveBooking(ctx context.Context, patientID, doctorID uuid.UUID, date time.Time, exclude uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE patient_id = $1
			  AND doctor_id = $2
			  AND date = $3
			  AND status IN ('requested', 'confirmed')
			  AND id <> $4
		)
	`, patientID, doctorID, date, exclude).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PgRepository) BookedSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]TimeSlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT time_slot
		FROM appointments
		WHERE doctor_id = $1
		  AND date = $2
		  AND status IN ('requested', 'confirmed')
		ORDER BY time_slot
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []TimeSlot
	for rows.Next() {
		var s TimeSlot
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

func (r *PgRepository) InsertAppointment(ctx context.Context, a *Appointment) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, date, time_slot, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING created_at, updated_at
	`, a.ID, a.PatientID, a.DoctorID, a.Date, a.TimeSlot, a.Status, a.Notes)

	if err := row.Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		return mapUniqueViolation(err)
	}
	return nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = clock_timestamp()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)
	return scanAppointment(row)
}

func (r *PgRepository) UpdateSchedule(ctx context.Context, id uuid.UUID, expect Status, date time.Time, slot TimeSlot) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET date = $3,
		    time_slot = $4,
		    updated_at = clock_timestamp()
		WHERE id = $1
		  AND status = $2
		RETURNING `+appointmentColumns+`
	`, id, expect, date, slot)

	appt, err := scanAppointment(row)
	if err != nil {
		return nil, mapUniqueViolation(err)
	}
	return appt, nil
}

func (r *PgRepository) UpdateNotes(ctx context.Context, id uuid.UUID, expect Status, notes string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET notes = $3,
		    updated_at = clock_timestamp()
		WHERE id = $1
		  AND status = $2
		RETURNING `+appointmentColumns+`
	`, id, expect, notes)
	return scanAppointment(row)
}

const detailQuery = `
	SELECT a.id, a.patient_id, a.doctor_id, a.date, a.time_slot, a.status, a.notes,
	       a.created_at, a.updated_at,
	       p.name, p.phone, d.name, d.specialization
	FROM appointments a
	JOIN patients p ON a.patient_id = p.id
	JOIN doctors d ON a.doctor_id = d.id
`

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, detailQuery+`
		WHERE a.doctor_id = $1
		  AND a.date BETWEEN $2 AND $3
		ORDER BY a.date DESC, a.time_slot DESC
	`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDetails(rows)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, detailQuery+`
		WHERE a.patient_id = $1
		ORDER BY a.date DESC, a.time_slot DESC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDetails(rows)
}

func (r *PgRepository) ListAll(ctx context.Context) ([]AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, detailQuery+`
		ORDER BY a.date DESC, a.time_slot DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDetails(rows)
}

func collectDetails(rows pgx.Rows) ([]AppointmentDetail, error) {
	var result []AppointmentDetail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

func (r *PgRepository) FindStaleConfirmed(ctx context.Context, before time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'confirmed'
		  AND date < $1
	`, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
