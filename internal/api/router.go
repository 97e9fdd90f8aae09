package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/medibook/medibook/internal/booking"
	"github.com/medibook/medibook/internal/directory"
)

type RouterConfig struct {
	Booking   *booking.Service
	Directory *directory.Service
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Log       *zap.Logger
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register/patient", registerPatientHandler(cfg.Directory))
			r.Post("/register/doctor", registerDoctorHandler(cfg.Directory))
			r.Post("/register/admin", registerAdminHandler(cfg.Directory))
			r.Post("/login/patient", loginPatientHandler(cfg.Directory))
			r.Post("/login/doctor", loginDoctorHandler(cfg.Directory))
			r.Post("/login/admin", loginAdminHandler(cfg.Directory))
		})

		r.Get("/patients", listPatientsHandler(cfg.Directory))
		r.Get("/doctors", listDoctorsHandler(cfg.Directory))
		r.Get("/doctors/{id}/free-slots", freeSlotsHandler(cfg.Booking))

		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", createAppointmentHandler(cfg.Booking))
			r.Get("/", listAllHandler(cfg.Booking))
			r.Post("/{id}/confirm", transitionHandler(cfg.Booking, booking.ActionConfirm))
			r.Post("/{id}/cancel", transitionHandler(cfg.Booking, booking.ActionCancel))
			r.Post("/{id}/complete", transitionHandler(cfg.Booking, booking.ActionComplete))
			r.Post("/{id}/no-show", transitionHandler(cfg.Booking, booking.ActionNoShow))
			r.Put("/{id}/schedule", rescheduleHandler(cfg.Booking))
			r.Put("/{id}/notes", updateNotesHandler(cfg.Booking))
			r.Get("/doctor/{id}", listByDoctorHandler(cfg.Booking))
			r.Get("/patient/{id}", listByPatientHandler(cfg.Booking))
		})
	})

	return r
}
