package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is a map-backed Repository plus Directory, safe for
// concurrent use. It backs the test suites and small single-node setups; the
// production path uses PgRepository.
type MemoryRepository struct {
	mu           sync.RWMutex
	patients     map[uuid.UUID]PatientRef
	doctors      map[uuid.UUID]DoctorRef
	appointments map[uuid.UUID]*Appointment
	events       []EventLog
	nextEventID  int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		patients:     make(map[uuid.UUID]PatientRef),
		doctors:      make(map[uuid.UUID]DoctorRef),
		appointments: make(map[uuid.UUID]*Appointment),
	}
}

func (m *MemoryRepository) AddPatient(p PatientRef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patients[p.ID] = p
}

func (m *MemoryRepository) AddDoctor(d DoctorRef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doctors[d.ID] = d
}

// Directory implementation

func (m *MemoryRepository) ResolvePatient(_ context.Context, id uuid.UUID) (*PatientRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (m *MemoryRepository) ResolveDoctor(_ context.Context, id uuid.UUID) (*DoctorRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return &d, nil
}

// Repository implementation

func (m *MemoryRepository) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryRepository) SlotTaken(_ context.Context, doctorID uuid.UUID, date time.Time, slot TimeSlot, exclude uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.appointments {
		if a.ID == exclude {
			continue
		}
		if a.DoctorID == doctorID && a.Date.Equal(date) && a.TimeSlot == slot && a.Status.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryRepository) HasActiveBooking(_ context.Context, patientID, doctorID uuid.UUID, date time.Time, exclude uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.appointments {
		if a.ID == exclude {
			continue
		}
		if a.PatientID == patientID && a.DoctorID == doctorID && a.Date.Equal(date) && a.Status.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryRepository) BookedSlots(_ context.Context, doctorID uuid.UUID, date time.Time) ([]TimeSlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var slots []TimeSlot
	for _, a := range m.appointments {
		if a.DoctorID == doctorID && a.Date.Equal(date) && a.Status.Active() {
			slots = append(slots, a.TimeSlot)
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	return slots, nil
}

func (m *MemoryRepository) InsertAppointment(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.appointments[a.ID] = &cp
	return nil
}

func (m *MemoryRepository) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	touch(a)
	cp := *a
	return &cp, nil
}

func (m *MemoryRepository) UpdateSchedule(_ context.Context, id uuid.UUID, expect Status, date time.Time, slot TimeSlot) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok || a.Status != expect {
		return nil, ErrAppointmentNotFound
	}
	a.Date = date
	a.TimeSlot = slot
	touch(a)
	cp := *a
	return &cp, nil
}

func (m *MemoryRepository) UpdateNotes(_ context.Context, id uuid.UUID, expect Status, notes string) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok || a.Status != expect {
		return nil, ErrAppointmentNotFound
	}
	a.Notes = notes
	touch(a)
	cp := *a
	return &cp, nil
}

func (m *MemoryRepository) ListByDoctor(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]AppointmentDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []AppointmentDetail
	for _, a := range m.appointments {
		if a.DoctorID != doctorID {
			continue
		}
		if a.Date.Before(from) || a.Date.After(to) {
			continue
		}
		result = append(result, m.hydrate(a))
	}
	sortDetailsDesc(result)
	return result, nil
}

func (m *MemoryRepository) ListByPatient(_ context.Context, patientID uuid.UUID) ([]AppointmentDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []AppointmentDetail
	for _, a := range m.appointments {
		if a.PatientID != patientID {
			continue
		}
		result = append(result, m.hydrate(a))
	}
	sortDetailsDesc(result)
	return result, nil
}

func (m *MemoryRepository) ListAll(_ context.Context) ([]AppointmentDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]AppointmentDetail, 0, len(m.appointments))
	for _, a := range m.appointments {
		result = append(result, m.hydrate(a))
	}
	sortDetailsDesc(result)
	return result, nil
}

func (m *MemoryRepository) FindStaleConfirmed(_ context.Context, before time.Time) ([]Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []Appointment
	for _, a := range m.appointments {
		if a.Status == StatusConfirmed && a.Date.Before(before) {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (m *MemoryRepository) InsertEvent(_ context.Context, ev EventLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextEventID++
	ev.ID = m.nextEventID
	m.events = append(m.events, ev)
	return nil
}

// Events returns a copy of the audit trail.
func (m *MemoryRepository) Events() []EventLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]EventLog, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MemoryRepository) hydrate(a *Appointment) AppointmentDetail {
	d := AppointmentDetail{Appointment: *a}
	if p, ok := m.patients[a.PatientID]; ok {
		d.PatientName = p.Name
		d.PatientPhone = p.Phone
	}
	if doc, ok := m.doctors[a.DoctorID]; ok {
		d.DoctorName = doc.Name
		d.Specialty = doc.Specialty
	}
	return d
}

func sortDetailsDesc(items []AppointmentDetail) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date) {
			return items[i].Date.After(items[j].Date)
		}
		return items[i].TimeSlot > items[j].TimeSlot
	})
}

// touch advances UpdatedAt, keeping it strictly increasing even when the
// wall clock has not moved between mutations.
func touch(a *Appointment) {
	now := time.Now()
	if !now.After(a.UpdatedAt) {
		now = a.UpdatedAt.Add(time.Nanosecond)
	}
	a.UpdatedAt = now
}
