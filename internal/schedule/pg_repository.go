package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-appointment-booking/internal/clock"
	"github.com/hackgods/clinic-appointment-booking/internal/db"
)

const uniqueScheduleConstraint = "schedules_doctor_clinic_date_key"

const scheduleColumns = `
	s.id, s.doctor_id, s.clinic_id, s.schedule_date,
	to_char(s.start_time, 'HH24:MI'), to_char(s.end_time, 'HH24:MI'),
	s.interval_min, s.created_at, s.updated_at`

type PgRepository struct {
	db   db.DBTX
	pool db.Beginner
}

func NewPgRepository(pool db.Beginner) *PgRepository {
	if pool == nil {
		panic("schedule: db pool required")
	}
	return &PgRepository{db: pool, pool: pool}
}

// Helpers

func scanSchedule(row pgx.Row) (*Schedule, error) {
	var s Schedule
	err := row.Scan(
		&s.ID,
		&s.DoctorID,
		&s.ClinicID,
		&s.Date,
		&s.StartTime,
		&s.EndTime,
		&s.Interval,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	s.Date = clock.DateOf(s.Date)
	return &s, nil
}

func collectSchedules(rows pgx.Rows) ([]Schedule, error) {
	defer rows.Close()

	var result []Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func storeTimes(s *Schedule) (start, end string, err error) {
	if start, err = clock.StoreFormat(s.StartTime); err != nil {
		return "", "", err
	}
	if end, err = clock.StoreFormat(s.EndTime); err != nil {
		return "", "", err
	}
	return start, end, nil
}

// Interface methods

func (r *PgRepository) WithTx(ctx context.Context, fn func(tx Repository) error) error {
	if r.pool == nil {
		// Already inside a transaction.
		return fn(r)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&PgRepository{db: tx})
	})
}

func (r *PgRepository) ExistingKeys(ctx context.Context, doctorIDs []uuid.UUID, dates []time.Time) ([]Key, error) {
	rows, err := r.db.Query(ctx, `
		SELECT doctor_id, schedule_date
		FROM schedules
		WHERE doctor_id = ANY($1)
		  AND schedule_date = ANY($2::date[])
		ORDER BY schedule_date, doctor_id
	`, doctorIDs, dates)
	if err != nil {
		return nil, fmt.Errorf("query existing schedules: %w", err)
	}
	defer rows.Close()

	var keys []Key
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.DoctorID, &k.Date); err != nil {
			return nil, fmt.Errorf("scan existing schedule: %w", err)
		}
		k.Date = clock.DateOf(k.Date)
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (r *PgRepository) Insert(ctx context.Context, s *Schedule) error {
	start, end, err := storeTimes(s)
	if err != nil {
		return err
	}

	err = r.db.QueryRow(ctx, `
		INSERT INTO schedules (id, doctor_id, clinic_id, schedule_date, start_time, end_time, interval_min, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::time, $6::time, $7, now(), now())
		RETURNING created_at, updated_at
	`, s.ID, s.DoctorID, s.ClinicID, s.Date, start, end, s.Interval).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, uniqueScheduleConstraint) {
			return ErrScheduleExists
		}
		if db.IsForeignKeyViolation(err, "") {
			return ErrDoctorNotFound
		}
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

func (r *PgRepository) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	var d Detail
	err := r.db.QueryRow(ctx, `
		SELECT `+scheduleColumns+`,
		       d.name, d.specialty,
		       c.name, c.city, c.address
		FROM schedules s
		JOIN doctors d ON d.id = s.doctor_id
		JOIN clinics c ON c.id = s.clinic_id
		WHERE s.id = $1
	`, id).Scan(
		&d.ID, &d.DoctorID, &d.ClinicID, &d.Date,
		&d.StartTime, &d.EndTime, &d.Interval, &d.CreatedAt, &d.UpdatedAt,
		&d.Doctor.Name, &d.Doctor.Specialty,
		&d.Clinic.Name, &d.Clinic.City, &d.Clinic.Address,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("load schedule detail: %w", err)
	}
	d.Date = clock.DateOf(d.Date)
	d.Doctor.ID = d.DoctorID
	d.Clinic.ID = d.ClinicID
	return &d, nil
}

func (r *PgRepository) FindForDoctorOnDate(ctx context.Context, clinicID, doctorID uuid.UUID, date time.Time) (*Schedule, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+scheduleColumns+`
		FROM schedules s
		WHERE s.clinic_id = $1 AND s.doctor_id = $2 AND s.schedule_date = $3
	`, clinicID, doctorID, clock.DateOf(date))
	return scanSchedule(row)
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Schedule, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+scheduleColumns+`
		FROM schedules s
		WHERE s.doctor_id = $1
		  AND s.schedule_date >= $2 AND s.schedule_date < $3
		ORDER BY s.schedule_date, s.start_time
	`, doctorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list doctor schedules: %w", err)
	}
	return collectSchedules(rows)
}

func (r *PgRepository) ListByClinic(ctx context.Context, clinicID uuid.UUID, from, to time.Time, doctorIDs []uuid.UUID) ([]Schedule, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+scheduleColumns+`
		FROM schedules s
		WHERE s.clinic_id = $1
		  AND s.schedule_date >= $2 AND s.schedule_date < $3
		  AND (cardinality($4::uuid[]) = 0 OR s.doctor_id = ANY($4::uuid[]))
		ORDER BY s.schedule_date, s.start_time, s.doctor_id
	`, clinicID, from, to, nonNilIDs(doctorIDs))
	if err != nil {
		return nil, fmt.Errorf("list clinic schedules: %w", err)
	}
	return collectSchedules(rows)
}

func (r *PgRepository) GetForClinic(ctx context.Context, clinicID, id uuid.UUID) (*Schedule, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+scheduleColumns+`
		FROM schedules s
		WHERE s.id = $1 AND s.clinic_id = $2
		FOR UPDATE
	`, id, clinicID)
	return scanSchedule(row)
}

func (r *PgRepository) UpdateTimes(ctx context.Context, s *Schedule) (*Schedule, error) {
	start, end, err := storeTimes(s)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRow(ctx, `
		UPDATE schedules s
		SET start_time = $3::time,
		    end_time = $4::time,
		    interval_min = $5,
		    updated_at = now()
		WHERE s.id = $1 AND s.clinic_id = $2
		RETURNING `+scheduleColumns, s.ID, s.ClinicID, start, end, s.Interval)
	return scanSchedule(row)
}

func (r *PgRepository) Delete(ctx context.Context, clinicID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM schedules
		WHERE id = $1 AND clinic_id = $2
	`, id, clinicID)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

func (r *PgRepository) ActiveBookedSlots(ctx context.Context, scheduleID uuid.UUID) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT to_char(time_slot, 'HH24:MI')
		FROM appointments
		WHERE schedule_id = $1 AND status = 'scheduled'
		ORDER BY time_slot
	`, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("query booked slots: %w", err)
	}
	defer rows.Close()

	var slots []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan booked slot: %w", err)
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

func nonNilIDs(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
