package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/medibook/medibook/internal/booking"
	"github.com/medibook/medibook/internal/directory"
)

type CreateAppointmentRequest struct {
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
	Date      string `json:"date"`
	TimeSlot  string `json:"time_slot"`
	Notes     string `json:"notes"`
}

type RescheduleRequest struct {
	Date     string `json:"date"`
	TimeSlot string `json:"time_slot"`
}

type NotesRequest struct {
	Notes string `json:"notes"`
}

type AppointmentResponse struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patient_id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	Date      string    `json:"date"`
	TimeSlot  string    `json:"time_slot"`
	Status    string    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:        a.ID,
		PatientID: a.PatientID,
		DoctorID:  a.DoctorID,
		Date:      booking.DateKey(a.Date),
		TimeSlot:  string(a.TimeSlot),
		Status:    string(a.Status),
		Notes:     a.Notes,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

type AppointmentDetailResponse struct {
	AppointmentResponse
	PatientName  string `json:"patient_name"`
	PatientPhone string `json:"patient_phone,omitempty"`
	DoctorName   string `json:"doctor_name"`
	Specialty    string `json:"specialization,omitempty"`
}

func toDetailResponses(items []booking.AppointmentDetail) []AppointmentDetailResponse {
	out := make([]AppointmentDetailResponse, 0, len(items))
	for i := range items {
		out = append(out, AppointmentDetailResponse{
			AppointmentResponse: toAppointmentResponse(&items[i].Appointment),
			PatientName:         items[i].PatientName,
			PatientPhone:        items[i].PatientPhone,
			DoctorName:          items[i].DoctorName,
			Specialty:           items[i].Specialty,
		})
	}
	return out
}

type FreeSlotsResponse struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Date     string    `json:"date"`
	Slots    []string  `json:"slots"`
}

type RegisterRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Phone          string `json:"phone"`
	Specialization string `json:"specialization,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type PatientResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toPatientResponse(p *directory.Patient) PatientResponse {
	return PatientResponse{ID: p.ID, Name: p.Name, Email: p.Email, Phone: p.Phone, CreatedAt: p.CreatedAt}
}

type DoctorResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	Specialization string    `json:"specialization"`
	CreatedAt      time.Time `json:"created_at"`
}

func toDoctorResponse(d *directory.Doctor) DoctorResponse {
	return DoctorResponse{ID: d.ID, Name: d.Name, Email: d.Email, Phone: d.Phone, Specialization: d.Specialization, CreatedAt: d.CreatedAt}
}

type AdminResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
