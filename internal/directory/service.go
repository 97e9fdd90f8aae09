package directory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/medibook/medibook/internal/booking"
)

const defaultSpecialization = "General"

// Service owns patient, doctor, and admin identities: registration, login,
// listings, and resolution for the booking core. Password hashes never leave
// this package.
type Service struct {
	store Store
	log   *zap.Logger
}

func NewService(store Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log}
}

type RegisterInput struct {
	Name           string
	Email          string
	Password       string
	Phone          string
	Specialization string // doctors only
}

func (in RegisterInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", booking.ErrValidation)
	}
	if !strings.Contains(in.Email, "@") {
		return fmt.Errorf("%w: email %q is not valid", booking.ErrValidation, in.Email)
	}
	if len(in.Password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", booking.ErrValidation)
	}
	return nil
}

func (s *Service) RegisterPatient(ctx context.Context, in RegisterInput) (*Patient, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	p := &Patient{
		ID:           uuid.New(),
		Name:         in.Name,
		Email:        normalizeEmail(in.Email),
		Phone:        in.Phone,
		PasswordHash: hash,
	}
	if err := s.store.CreatePatient(ctx, p); err != nil {
		return nil, fmt.Errorf("create patient: %w", err)
	}
	s.log.Info("patient registered", zap.String("patient_id", p.ID.String()))
	return p, nil
}

func (s *Service) RegisterDoctor(ctx context.Context, in RegisterInput) (*Doctor, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	spec := in.Specialization
	if spec == "" {
		spec = defaultSpecialization
	}
	d := &Doctor{
		ID:             uuid.New(),
		Name:           in.Name,
		Email:          normalizeEmail(in.Email),
		Phone:          in.Phone,
		Specialization: spec,
		PasswordHash:   hash,
	}
	if err := s.store.CreateDoctor(ctx, d); err != nil {
		return nil, fmt.Errorf("create doctor: %w", err)
	}
	s.log.Info("doctor registered", zap.String("doctor_id", d.ID.String()))
	return d, nil
}

func (s *Service) RegisterAdmin(ctx context.Context, in RegisterInput) (*Admin, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	a := &Admin{
		ID:           uuid.New(),
		Name:         in.Name,
		Email:        normalizeEmail(in.Email),
		Phone:        in.Phone,
		PasswordHash: hash,
	}
	if err := s.store.CreateAdmin(ctx, a); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	s.log.Info("admin registered", zap.String("admin_id", a.ID.String()))
	return a, nil
}

func (s *Service) LoginPatient(ctx context.Context, email, password string) (*Patient, error) {
	p, err := s.store.GetPatientByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if err := checkPassword(p.PasswordHash, password); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) LoginDoctor(ctx context.Context, email, password string) (*Doctor, error) {
	d, err := s.store.GetDoctorByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if err := checkPassword(d.PasswordHash, password); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) LoginAdmin(ctx context.Context, email, password string) (*Admin, error) {
	a, err := s.store.GetAdminByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if err := checkPassword(a.PasswordHash, password); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) ListPatients(ctx context.Context) ([]Patient, error) {
	return s.store.ListPatients(ctx)
}

func (s *Service) ListDoctors(ctx context.Context) ([]Doctor, error) {
	return s.store.ListDoctors(ctx)
}

// booking.Directory implementation

func (s *Service) ResolvePatient(ctx context.Context, id uuid.UUID) (*booking.PatientRef, error) {
	p, err := s.store.GetPatientByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &booking.PatientRef{ID: p.ID, Name: p.Name, Phone: p.Phone}, nil
}

func (s *Service) ResolveDoctor(ctx context.Context, id uuid.UUID) (*booking.DoctorRef, error) {
	d, err := s.store.GetDoctorByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &booking.DoctorRef{ID: d.ID, Name: d.Name, Specialty: d.Specialization}, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func checkPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
