package directory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medibook/medibook/internal/booking"
)

// MemoryStore is a map-backed Store for tests and local development.
type MemoryStore struct {
	mu       sync.RWMutex
	patients map[uuid.UUID]Patient
	doctors  map[uuid.UUID]Doctor
	admins   map[uuid.UUID]Admin
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		patients: make(map[uuid.UUID]Patient),
		doctors:  make(map[uuid.UUID]Doctor),
		admins:   make(map[uuid.UUID]Admin),
	}
}

func (m *MemoryStore) CreatePatient(_ context.Context, p *Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.patients {
		if existing.Email == p.Email {
			return ErrEmailTaken
		}
	}
	p.CreatedAt = time.Now()
	m.patients[p.ID] = *p
	return nil
}

func (m *MemoryStore) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, booking.ErrPatientNotFound
	}
	return &p, nil
}

func (m *MemoryStore) GetPatientByEmail(_ context.Context, email string) (*Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.patients {
		if p.Email == email {
			cp := p
			return &cp, nil
		}
	}
	return nil, booking.ErrPatientNotFound
}

func (m *MemoryStore) ListPatients(_ context.Context) ([]Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]Patient, 0, len(m.patients))
	for _, p := range m.patients {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (m *MemoryStore) CreateDoctor(_ context.Context, d *Doctor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.doctors {
		if existing.Email == d.Email {
			return ErrEmailTaken
		}
	}
	d.CreatedAt = time.Now()
	m.doctors[d.ID] = *d
	return nil
}

func (m *MemoryStore) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.doctors[id]
	if !ok {
		return nil, booking.ErrDoctorNotFound
	}
	return &d, nil
}

func (m *MemoryStore) GetDoctorByEmail(_ context.Context, email string) (*Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.doctors {
		if d.Email == email {
			cp := d
			return &cp, nil
		}
	}
	return nil, booking.ErrDoctorNotFound
}

func (m *MemoryStore) ListDoctors(_ context.Context) ([]Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]Doctor, 0, len(m.doctors))
	for _, d := range m.doctors {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (m *MemoryStore) CreateAdmin(_ context.Context, a *Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.admins {
		if existing.Email == a.Email {
			return ErrEmailTaken
		}
	}
	a.CreatedAt = time.Now()
	m.admins[a.ID] = *a
	return nil
}

func (m *MemoryStore) GetAdminByEmail(_ context.Context, email string) (*Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.admins {
		if a.Email == email {
			cp := a
			return &cp, nil
		}
	}
	return nil, ErrAdminNotFound
}
