package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/medibook/medibook/internal/booking"
	"github.com/medibook/medibook/internal/directory"
)

func registerPatientHandler(svc *directory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, ok := decodeRegister(w, r)
		if !ok {
			return
		}
		p, err := svc.RegisterPatient(r.Context(), in)
		if err != nil {
			mapDirectoryError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toPatientResponse(p))
	}
}

func registerDoctorHandler(svc *directory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, ok := decodeRegister(w, r)
		if !ok {
			return
		}
		d, err := svc.RegisterDoctor(r.Context(), in)
		if err != nil {
			mapDirectoryError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toDoctorResponse(d))
	}
}

func registerAdminHandler(svc *directory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, ok := decodeRegister(w, r)
		if !ok {
			return
		}
		a, err := svc.RegisterAdmin(r.Context(), in)
		if err != nil {
			mapDirectoryError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, AdminResponse{ID: a.ID, Name: a.Name, Email: a.Email})
	}
}

func loginPatientHandler(svc *directory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, password, ok := decodeLogin(w, r)
		if !ok {
			return
		}
		p, err := svc.LoginPatient(r.Context(), email, password)
		if err != nil {
			mapDirectoryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPatientResponse(p))
	}
}

func loginDoctorHandler(svc *directory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, password, ok := decodeLogin(w, r)
		if !ok {
			return
		}
		d, err := svc.LoginDoctor(r.Context(), email, password)
		if err != nil {
			mapDirectoryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDoctorResponse(d))
	}
}

func loginAdminHandler(svc *directory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, password, ok := decodeLogin(w, r)
		if !ok {
			return
		}
		a, err := svc.LoginAdmin(r.Context(), email, password)
		if err != nil {
			mapDirectoryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, AdminResponse{ID: a.ID, Name: a.Name, Email: a.Email})
	}
}

func listPatientsHandler(svc *directory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patients, err := svc.ListPatients(r.Context())
		if err != nil {
			mapDirectoryError(w, err)
			return
		}
		out := make([]PatientResponse, 0, len(patients))
		for i := range patients {
			out = append(out, toPatientResponse(&patients[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func listDoctorsHandler(svc *directory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctors, err := svc.ListDoctors(r.Context())
		if err != nil {
			mapDirectoryError(w, err)
			return
		}
		out := make([]DoctorResponse, 0, len(doctors))
		for i := range doctors {
			out = append(out, toDoctorResponse(&doctors[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func decodeRegister(w http.ResponseWriter, r *http.Request) (directory.RegisterInput, bool) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return directory.RegisterInput{}, false
	}
	return directory.RegisterInput{
		Name:           req.Name,
		Email:          req.Email,
		Password:       req.Password,
		Phone:          req.Phone,
		Specialization: req.Specialization,
	}, true
}

func decodeLogin(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return "", "", false
	}
	return req.Email, req.Password, true
}

func mapDirectoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, directory.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email_taken", err.Error())
	case errors.Is(err, directory.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
	case errors.Is(err, booking.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, booking.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, directory.ErrAdminNotFound):
		writeError(w, http.StatusNotFound, "admin_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected error")
	}
}
