// Package directory reads the clinic, doctor and doctor-service records the
// booking core validates against. It never writes them.
package directory

import (
	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-booking/internal/apperr"
)

var (
	ErrDoctorNotFound        = apperr.NotFound("doctor")
	ErrClinicNotFound        = apperr.NotFound("clinic")
	ErrDoctorServiceNotFound = apperr.NotFound("doctor service")
)

type Clinic struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	City    string    `json:"city"`
	Address string    `json:"address"`
}

type Doctor struct {
	ID        uuid.UUID `json:"id"`
	ClinicID  uuid.UUID `json:"clinic_id"`
	Name      string    `json:"name"`
	Specialty string    `json:"specialty"`
}

type DoctorService struct {
	ID         uuid.UUID `json:"id"`
	DoctorID   uuid.UUID `json:"doctor_id"`
	ClinicID   uuid.UUID `json:"clinic_id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
}
