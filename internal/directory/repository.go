package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-appointment-booking/internal/db"
)

// Repository holds the ownership predicates used by scheduling and booking.
type Repository interface {
	GetDoctorInClinic(ctx context.Context, clinicID, doctorID uuid.UUID) (*Doctor, error)
	GetDoctorServiceInClinic(ctx context.Context, clinicID, serviceID uuid.UUID) (*DoctorService, error)
	// CountDoctorsInClinic counts how many of doctorIDs belong to clinicID.
	CountDoctorsInClinic(ctx context.Context, clinicID uuid.UUID, doctorIDs []uuid.UUID) (int, error)
}

type PgRepository struct {
	db db.DBTX
}

func NewPgRepository(conn db.DBTX) *PgRepository {
	if conn == nil {
		panic("directory: db connection required")
	}
	return &PgRepository{db: conn}
}

func (r *PgRepository) GetDoctorInClinic(ctx context.Context, clinicID, doctorID uuid.UUID) (*Doctor, error) {
	var d Doctor
	err := r.db.QueryRow(ctx, `
		SELECT id, clinic_id, name, specialty
		FROM doctors
		WHERE id = $1 AND clinic_id = $2
	`, doctorID, clinicID).Scan(&d.ID, &d.ClinicID, &d.Name, &d.Specialty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	return &d, nil
}

func (r *PgRepository) GetDoctorServiceInClinic(ctx context.Context, clinicID, serviceID uuid.UUID) (*DoctorService, error) {
	var s DoctorService
	err := r.db.QueryRow(ctx, `
		SELECT id, doctor_id, clinic_id, name, price_cents
		FROM doctor_services
		WHERE id = $1 AND clinic_id = $2
	`, serviceID, clinicID).Scan(&s.ID, &s.DoctorID, &s.ClinicID, &s.Name, &s.PriceCents)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorServiceNotFound
		}
		return nil, fmt.Errorf("load doctor service: %w", err)
	}
	return &s, nil
}

func (r *PgRepository) CountDoctorsInClinic(ctx context.Context, clinicID uuid.UUID, doctorIDs []uuid.UUID) (int, error) {
	if len(doctorIDs) == 0 {
		return 0, nil
	}
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT count(*)
		FROM doctors
		WHERE clinic_id = $1 AND id = ANY($2)
	`, clinicID, doctorIDs).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count clinic doctors: %w", err)
	}
	return n, nil
}
