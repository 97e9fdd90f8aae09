package directory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medibook/medibook/internal/booking"
)

func newTestService() *Service {
	return NewService(NewMemoryStore(), zap.NewNop())
}

func TestRegisterAndLoginPatient(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	p, err := svc.RegisterPatient(ctx, RegisterInput{
		Name:     "Ana Silva",
		Email:    "Ana@Example.com",
		Password: "correct horse",
		Phone:    "555-0101",
	})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", p.Email, "emails are normalized")
	assert.NotEqual(t, "correct horse", p.PasswordHash)

	got, err := svc.LoginPatient(ctx, "ana@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = svc.LoginPatient(ctx, "ana@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.LoginPatient(ctx, "nobody@example.com", "whatever")
	require.ErrorIs(t, err, booking.ErrPatientNotFound)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.RegisterPatient(ctx, RegisterInput{Name: "", Email: "a@b.c", Password: "longenough"})
	require.ErrorIs(t, err, booking.ErrValidation)

	_, err = svc.RegisterPatient(ctx, RegisterInput{Name: "Ana", Email: "not-an-email", Password: "longenough"})
	require.ErrorIs(t, err, booking.ErrValidation)

	_, err = svc.RegisterPatient(ctx, RegisterInput{Name: "Ana", Email: "a@b.c", Password: "short"})
	require.ErrorIs(t, err, booking.ErrValidation)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.RegisterPatient(ctx, RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "longenough"})
	require.NoError(t, err)

	_, err = svc.RegisterPatient(ctx, RegisterInput{Name: "Another Ana", Email: "ana@example.com", Password: "longenough"})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterDoctorDefaultsSpecialization(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	d, err := svc.RegisterDoctor(ctx, RegisterInput{Name: "Dr. Grey", Email: "grey@example.com", Password: "longenough"})
	require.NoError(t, err)
	assert.Equal(t, "General", d.Specialization)

	d2, err := svc.RegisterDoctor(ctx, RegisterInput{
		Name: "Dr. Yang", Email: "yang@example.com", Password: "longenough", Specialization: "Cardiology",
	})
	require.NoError(t, err)
	assert.Equal(t, "Cardiology", d2.Specialization)
}

func TestResolve(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	p, err := svc.RegisterPatient(ctx, RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "longenough", Phone: "555-0101"})
	require.NoError(t, err)
	d, err := svc.RegisterDoctor(ctx, RegisterInput{Name: "Dr. Grey", Email: "grey@example.com", Password: "longenough"})
	require.NoError(t, err)

	pref, err := svc.ResolvePatient(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", pref.Name)
	assert.Equal(t, "555-0101", pref.Phone)

	dref, err := svc.ResolveDoctor(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "General", dref.Specialty)

	_, err = svc.ResolvePatient(ctx, uuid.New())
	require.ErrorIs(t, err, booking.ErrPatientNotFound)
	_, err = svc.ResolveDoctor(ctx, uuid.New())
	require.ErrorIs(t, err, booking.ErrDoctorNotFound)
}

func TestAdminRegisterLogin(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	a, err := svc.RegisterAdmin(ctx, RegisterInput{Name: "Root", Email: "root@example.com", Password: "longenough"})
	require.NoError(t, err)

	got, err := svc.LoginAdmin(ctx, "root@example.com", "longenough")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = svc.LoginAdmin(ctx, "missing@example.com", "longenough")
	require.ErrorIs(t, err, ErrAdminNotFound)
}
