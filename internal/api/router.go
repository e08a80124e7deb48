package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-appointment-booking/internal/auth"
	"github.com/hackgods/clinic-appointment-booking/internal/clock"
)

type RouterConfig struct {
	Schedules    ScheduleService
	Appointments AppointmentService
	Availability AvailabilityService
	Postgres     Pinger
	Redis        Pinger
	Gatherer     prometheus.Gatherer
	JWTSecret    string
	Clock        clock.Clock
	Logger       zerolog.Logger
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Clock == nil {
		cfg.Clock = clock.System{}
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	schedules := &scheduleHandler{svc: cfg.Schedules, clock: cfg.Clock, logger: cfg.Logger}
	appointments := &appointmentHandler{svc: cfg.Appointments, availability: cfg.Availability, logger: cfg.Logger}
	authenticate := auth.Authenticate(cfg.JWTSecret)

	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(middleware.Recoverer)

	// Health endpoints
	health := NewHealthHandler(cfg.Postgres, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	// Public reads
	r.Get("/schedules/{id}", schedules.get)
	r.Get("/doctors/{doctorID}/schedules", schedules.listByDoctor)
	r.Get("/clinics/{clinicID}/schedules", schedules.listByClinic)
	r.Get("/appointments", appointments.search)

	// Clinic endpoints
	r.Group(func(r chi.Router) {
		r.Use(authenticate, auth.RequireRole(auth.RoleClinic))
		r.Post("/clinics/{clinicID}/schedules", schedules.create)
		r.Put("/schedules/{id}", schedules.update)
		r.Delete("/schedules/{id}", schedules.delete)
	})

	// Patient endpoints
	r.Group(func(r chi.Router) {
		r.Use(authenticate, auth.RequireRole(auth.RolePatient))
		r.Post("/appointments", appointments.book)
		r.Get("/patients/{patientID}/appointments", appointments.listByPatient)
	})

	// Owner endpoints, patient or clinic
	r.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/appointments/{id}", appointments.get)
		r.Post("/appointments/{id}/cancel", appointments.cancel)
		r.Delete("/appointments/{id}", appointments.delete)
	})

	return r
}
