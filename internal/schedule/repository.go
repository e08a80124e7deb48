package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// WithTx runs fn against a repository bound to a single transaction.
	WithTx(ctx context.Context, fn func(tx Repository) error) error

	// Batch creation
	ExistingKeys(ctx context.Context, doctorIDs []uuid.UUID, dates []time.Time) ([]Key, error)
	Insert(ctx context.Context, s *Schedule) error

	// Reads
	GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error)
	FindForDoctorOnDate(ctx context.Context, clinicID, doctorID uuid.UUID, date time.Time) (*Schedule, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Schedule, error)
	ListByClinic(ctx context.Context, clinicID uuid.UUID, from, to time.Time, doctorIDs []uuid.UUID) ([]Schedule, error)

	// Owner scoped mutations. GetForClinic locks the row inside a transaction.
	GetForClinic(ctx context.Context, clinicID, id uuid.UUID) (*Schedule, error)
	UpdateTimes(ctx context.Context, s *Schedule) (*Schedule, error)
	Delete(ctx context.Context, clinicID, id uuid.UUID) error

	// Slots held by scheduled appointments on the schedule
	ActiveBookedSlots(ctx context.Context, scheduleID uuid.UUID) ([]string, error)
}

// DoctorChecker verifies clinic membership for a batch of doctors.
type DoctorChecker interface {
	CountDoctorsInClinic(ctx context.Context, clinicID uuid.UUID, doctorIDs []uuid.UUID) (int, error)
}
