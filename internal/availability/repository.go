package availability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-appointment-booking/internal/clock"
	"github.com/hackgods/clinic-appointment-booking/internal/db"
	"github.com/hackgods/clinic-appointment-booking/internal/schedule"
)

// Query is a Filter resolved against "today": either Date is set, or From and
// To bound the upcoming window. City and Specialty match as plain substrings.
type Query struct {
	City      *string
	Specialty *string
	Date      *time.Time
	From      *time.Time
	To        *time.Time
}

// Candidate is one schedule of a doctor matching the query.
type Candidate struct {
	DoctorID   uuid.UUID
	DoctorName string
	Specialty  string
	Clinic     ClinicInfo
	Schedule   schedule.Schedule
}

type Repository interface {
	// Candidates lists matching schedules ordered by doctor name, doctor id, date.
	Candidates(ctx context.Context, q Query) ([]Candidate, error)
	// BookedSlots returns the slots held by non-canceled appointments per schedule.
	BookedSlots(ctx context.Context, scheduleIDs []uuid.UUID) (map[uuid.UUID][]string, error)
}

type PgRepository struct {
	db db.DBTX
}

func NewPgRepository(conn db.DBTX) *PgRepository {
	if conn == nil {
		panic("availability: db connection required")
	}
	return &PgRepository{db: conn}
}

func (r *PgRepository) Candidates(ctx context.Context, q Query) ([]Candidate, error) {
	rows, err := r.db.Query(ctx, `
		SELECT d.id, d.name, d.specialty,
		       c.id, c.name, c.city, c.address,
		       s.id, s.schedule_date,
		       to_char(s.start_time, 'HH24:MI'), to_char(s.end_time, 'HH24:MI'), s.interval_min
		FROM schedules s
		JOIN doctors d ON d.id = s.doctor_id
		JOIN clinics c ON c.id = s.clinic_id
		WHERE ($1::text IS NULL OR c.city ILIKE $1 ESCAPE '\')
		  AND ($2::text IS NULL OR d.specialty ILIKE $2 ESCAPE '\')
		  AND ($3::date IS NULL OR s.schedule_date = $3)
		  AND ($4::date IS NULL OR s.schedule_date >= $4)
		  AND ($5::date IS NULL OR s.schedule_date <= $5)
		ORDER BY d.name, d.id, s.schedule_date
	`, containsPattern(q.City), containsPattern(q.Specialty), dateArg(q.Date), dateArg(q.From), dateArg(q.To))
	if err != nil {
		return nil, fmt.Errorf("query availability candidates: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		err := rows.Scan(
			&c.DoctorID, &c.DoctorName, &c.Specialty,
			&c.Clinic.ID, &c.Clinic.Name, &c.Clinic.City, &c.Clinic.Address,
			&c.Schedule.ID, &c.Schedule.Date,
			&c.Schedule.StartTime, &c.Schedule.EndTime, &c.Schedule.Interval,
		)
		if err != nil {
			return nil, fmt.Errorf("scan availability candidate: %w", err)
		}
		c.Schedule.Date = clock.DateOf(c.Schedule.Date)
		c.Schedule.DoctorID = c.DoctorID
		c.Schedule.ClinicID = c.Clinic.ID
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PgRepository) BookedSlots(ctx context.Context, scheduleIDs []uuid.UUID) (map[uuid.UUID][]string, error) {
	booked := make(map[uuid.UUID][]string)
	if len(scheduleIDs) == 0 {
		return booked, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT schedule_id, to_char(time_slot, 'HH24:MI')
		FROM appointments
		WHERE schedule_id = ANY($1)
		  AND status <> 'canceled'
	`, scheduleIDs)
	if err != nil {
		return nil, fmt.Errorf("query booked slots: %w", err)
	}

	var (
		scheduleID uuid.UUID
		slot       string
	)
	_, err = pgx.ForEachRow(rows, []any{&scheduleID, &slot}, func() error {
		booked[scheduleID] = append(booked[scheduleID], slot)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan booked slots: %w", err)
	}
	return booked, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns v into an ILIKE pattern matching v literally anywhere.
func containsPattern(v *string) *string {
	if v == nil {
		return nil
	}
	p := "%" + likeEscaper.Replace(*v) + "%"
	return &p
}

func dateArg(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := clock.DateOf(*t)
	return &d
}
