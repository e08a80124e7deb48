package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-appointment-booking/internal/clock"
	"github.com/hackgods/clinic-appointment-booking/internal/db"
	"github.com/hackgods/clinic-appointment-booking/internal/schedule"
)

const (
	activeSlotConstraint = "appointments_active_slot_key"
	patientFKConstraint  = "appointments_patient_id_fkey"
	scheduleFKConstraint = "appointments_schedule_id_fkey"
)

const appointmentColumns = `
	id, schedule_id, doctor_id, clinic_id, patient_id, doctor_service_id,
	appointment_date, to_char(time_slot, 'HH24:MI'), first_visit, visit_type,
	status, description, created_at, updated_at`

type PgRepository struct {
	db   db.DBTX
	pool db.Beginner
}

func NewPgRepository(pool db.Beginner) *PgRepository {
	if pool == nil {
		panic("appointment: db pool required")
	}
	return &PgRepository{db: pool, pool: pool}
}

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.ScheduleID,
		&a.DoctorID,
		&a.ClinicID,
		&a.PatientID,
		&a.DoctorServiceID,
		&a.Date,
		&a.TimeSlot,
		&a.FirstVisit,
		&a.VisitType,
		&a.Status,
		&a.Description,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	a.Date = clock.DateOf(a.Date)
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Interface methods

func (r *PgRepository) WithTx(ctx context.Context, fn func(tx Repository) error) error {
	if r.pool == nil {
		return fn(r)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&PgRepository{db: tx})
	})
}

func (r *PgRepository) LockSchedule(ctx context.Context, scheduleID uuid.UUID) (*schedule.Schedule, error) {
	var s schedule.Schedule
	err := r.db.QueryRow(ctx, `
		SELECT id, doctor_id, clinic_id, schedule_date,
		       to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), interval_min
		FROM schedules
		WHERE id = $1
		FOR SHARE
	`, scheduleID).Scan(&s.ID, &s.DoctorID, &s.ClinicID, &s.Date, &s.StartTime, &s.EndTime, &s.Interval)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, schedule.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("lock schedule: %w", err)
	}
	s.Date = clock.DateOf(s.Date)
	return &s, nil
}

func (r *PgRepository) SlotTaken(ctx context.Context, scheduleID uuid.UUID, slot string) (bool, error) {
	stored, err := clock.StoreFormat(slot)
	if err != nil {
		return false, err
	}
	var taken bool
	err = r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM appointments
			WHERE schedule_id = $1
			  AND time_slot = $2::time
			  AND status <> 'canceled'
		)
	`, scheduleID, stored).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check slot: %w", err)
	}
	return taken, nil
}

func (r *PgRepository) Insert(ctx context.Context, a *Appointment) error {
	stored, err := clock.StoreFormat(a.TimeSlot)
	if err != nil {
		return err
	}

	err = r.db.QueryRow(ctx, `
		INSERT INTO appointments (
			id, schedule_id, doctor_id, clinic_id, patient_id, doctor_service_id,
			appointment_date, time_slot, first_visit, visit_type, status, description,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::time, $9, $10, $11, $12, now(), now())
		RETURNING created_at, updated_at
	`,
		a.ID, a.ScheduleID, a.DoctorID, a.ClinicID, a.PatientID, a.DoctorServiceID,
		a.Date, stored, a.FirstVisit, string(a.VisitType), string(a.Status), a.Description,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		switch {
		case db.IsUniqueViolation(err, activeSlotConstraint):
			return ErrSlotNotFree
		case db.IsForeignKeyViolation(err, patientFKConstraint):
			return ErrPatientNotFound
		case db.IsForeignKeyViolation(err, scheduleFKConstraint):
			return schedule.ErrScheduleNotFound
		}
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *PgRepository) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns, id, string(to), string(from))

	a, err := scanAppointment(row)
	if errors.Is(err, ErrAppointmentNotFound) {
		return nil, ErrStatusChanged
	}
	return a, err
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY appointment_date DESC, time_slot DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list patient appointments: %w", err)
	}
	return collectAppointments(rows)
}

func (r *PgRepository) FindDuePast(ctx context.Context, today time.Time, nowSlot string, limit int) ([]Appointment, error) {
	stored, err := clock.StoreFormat(nowSlot)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'scheduled'
		  AND (appointment_date < $1
		       OR (appointment_date = $1 AND time_slot <= $2::time))
		ORDER BY appointment_date, time_slot
		LIMIT $3
	`, clock.DateOf(today), stored, limit)
	if err != nil {
		return nil, fmt.Errorf("find due appointments: %w", err)
	}
	return collectAppointments(rows)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
