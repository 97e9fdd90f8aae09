package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrAdminNotFound      = errors.New("admin not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Store contains the DB interactions behind the directory service.
// Implementations report duplicate emails with ErrEmailTaken and unknown
// patient/doctor ids with the booking package's NotFound sentinels, since
// those cross the subsystem boundary.
type Store interface {
	CreatePatient(ctx context.Context, p *Patient) error
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetPatientByEmail(ctx context.Context, email string) (*Patient, error)
	ListPatients(ctx context.Context) ([]Patient, error)

	CreateDoctor(ctx context.Context, d *Doctor) error
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetDoctorByEmail(ctx context.Context, email string) (*Doctor, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)

	CreateAdmin(ctx context.Context, a *Admin) error
	GetAdminByEmail(ctx context.Context, email string) (*Admin, error)
}
