package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medibook/medibook/internal/booking"
)

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func mapEmailViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrEmailTaken
	}
	return err
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.PasswordHash, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, booking.ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Name, &d.Email, &d.Phone, &d.Specialization, &d.PasswordHash, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, booking.ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func scanAdmin(row pgx.Row) (*Admin, error) {
	var a Admin
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.Phone, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (s *PgStore) CreatePatient(ctx context.Context, p *Patient) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO patients (id, name, email, phone, password, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING created_at
	`, p.ID, p.Name, p.Email, p.Phone, p.PasswordHash)
	if err := row.Scan(&p.CreatedAt); err != nil {
		return mapEmailViolation(err)
	}
	return nil
}

func (s *PgStore) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, password, created_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (s *PgStore) GetPatientByEmail(ctx context.Context, email string) (*Patient, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, password, created_at
		FROM patients
		WHERE email = $1
	`, email)
	return scanPatient(row)
}

func (s *PgStore) ListPatients(ctx context.Context) ([]Patient, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, email, phone, password, created_at
		FROM patients
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (s *PgStore) CreateDoctor(ctx context.Context, d *Doctor) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO doctors (id, name, email, phone, specialization, password, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING created_at
	`, d.ID, d.Name, d.Email, d.Phone, d.Specialization, d.PasswordHash)
	if err := row.Scan(&d.CreatedAt); err != nil {
		return mapEmailViolation(err)
	}
	return nil
}

func (s *PgStore) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, specialization, password, created_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (s *PgStore) GetDoctorByEmail(ctx context.Context, email string) (*Doctor, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, specialization, password, created_at
		FROM doctors
		WHERE email = $1
	`, email)
	return scanDoctor(row)
}

func (s *PgStore) ListDoctors(ctx context.Context) ([]Doctor, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, email, phone, specialization, password, created_at
		FROM doctors
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

func (s *PgStore) CreateAdmin(ctx context.Context, a *Admin) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO admins (id, name, email, phone, password, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING created_at
	`, a.ID, a.Name, a.Email, a.Phone, a.PasswordHash)
	if err := row.Scan(&a.CreatedAt); err != nil {
		return mapEmailViolation(err)
	}
	return nil
}

func (s *PgStore) GetAdminByEmail(ctx context.Context, email string) (*Admin, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, password, created_at
		FROM admins
		WHERE email = $1
	`, email)
	return scanAdmin(row)
}
