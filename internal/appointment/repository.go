package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-booking/internal/directory"
	"github.com/hackgods/clinic-appointment-booking/internal/schedule"
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// WithTx runs fn against a repository bound to one transaction.
	WithTx(ctx context.Context, fn func(tx Repository) error) error

	// LockSchedule re-reads a schedule under a share lock held until the
	// transaction ends, so a concurrent schedule update or delete waits.
	LockSchedule(ctx context.Context, scheduleID uuid.UUID) (*schedule.Schedule, error)

	// For conflict checks
	SlotTaken(ctx context.Context, scheduleID uuid.UUID, slot string) (bool, error)

	Insert(ctx context.Context, a *Appointment) error
	Get(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// UpdateStatus moves id from one status to another. ErrStatusChanged when
	// the row is no longer in from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)

	// Completion sweep: scheduled appointments on a date before today, or
	// today at or before nowSlot.
	FindDuePast(ctx context.Context, today time.Time, nowSlot string, limit int) ([]Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}

// Directory resolves the doctor and doctor service of a booking within its clinic.
type Directory interface {
	GetDoctorInClinic(ctx context.Context, clinicID, doctorID uuid.UUID) (*directory.Doctor, error)
	GetDoctorServiceInClinic(ctx context.Context, clinicID, serviceID uuid.UUID) (*directory.DoctorService, error)
}

// Schedules finds the schedule a booking lands on.
type Schedules interface {
	FindForDoctorOnDate(ctx context.Context, clinicID, doctorID uuid.UUID, date time.Time) (*schedule.Schedule, error)
}
