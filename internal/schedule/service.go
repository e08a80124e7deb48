package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-appointment-booking/internal/apperr"
	"github.com/hackgods/clinic-appointment-booking/internal/clock"
)

// MaxBatch bounds the doctors x dates cross product of a single create call.
const MaxBatch = 2000

type Service struct {
	repo    Repository
	doctors DoctorChecker
	logger  zerolog.Logger
}

func NewService(repo Repository, doctors DoctorChecker, logger zerolog.Logger) *Service {
	if repo == nil || doctors == nil {
		panic("schedule: repository and doctor checker required")
	}
	return &Service{repo: repo, doctors: doctors, logger: logger}
}

// CreateSchedules creates one schedule per doctor and date. The batch is
// all-or-nothing: a missing doctor or an existing (doctor, date) pair rejects
// every row.
func (s *Service) CreateSchedules(ctx context.Context, clinicID uuid.UUID, req CreateRequest) ([]Schedule, error) {
	fields, err := req.Fields.Normalize()
	if err != nil {
		return nil, err
	}

	doctorIDs := uniqueIDs(req.DoctorIDs)
	if len(doctorIDs) == 0 {
		return nil, ErrNoDoctors
	}

	dates, err := collectDates(req)
	if err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return nil, ErrNoDates
	}
	if len(doctorIDs)*len(dates) > MaxBatch {
		return nil, ErrBatchTooLarge
	}

	n, err := s.doctors.CountDoctorsInClinic(ctx, clinicID, doctorIDs)
	if err != nil {
		return nil, fmt.Errorf("check clinic doctors: %w", err)
	}
	if n != len(doctorIDs) {
		return nil, ErrDoctorNotFound
	}

	created := make([]Schedule, 0, len(doctorIDs)*len(dates))
	err = s.repo.WithTx(ctx, func(tx Repository) error {
		existing, err := tx.ExistingKeys(ctx, doctorIDs, dates)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return ErrScheduleExists
		}

		for _, date := range dates {
			for _, doctorID := range doctorIDs {
				sched := Schedule{
					ID:        uuid.New(),
					DoctorID:  doctorID,
					ClinicID:  clinicID,
					Date:      date,
					StartTime: fields.StartTime,
					EndTime:   fields.EndTime,
					Interval:  fields.Interval,
				}
				if err := tx.Insert(ctx, &sched); err != nil {
					return err
				}
				created = append(created, sched)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrScheduleExists) || errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("create schedules: %w", err)
	}

	s.logger.Info().
		Str("clinic_id", clinicID.String()).
		Int("doctors", len(doctorIDs)).
		Int("dates", len(dates)).
		Int("created", len(created)).
		Msg("schedules created")

	return created, nil
}

// Get returns a schedule with its doctor and clinic summary.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Detail, error) {
	return s.repo.GetDetail(ctx, id)
}

// Update changes the working window of a schedule owned by clinicID. A change
// that would drop a slot held by a scheduled appointment is rejected.
func (s *Service) Update(ctx context.Context, clinicID, id uuid.UUID, req UpdateRequest) (*Schedule, error) {
	var updated *Schedule
	err := s.repo.WithTx(ctx, func(tx Repository) error {
		current, err := tx.GetForClinic(ctx, clinicID, id)
		if err != nil {
			return err
		}

		fields := Fields{StartTime: current.StartTime, EndTime: current.EndTime, Interval: current.Interval}
		if req.StartTime != nil {
			fields.StartTime = *req.StartTime
		}
		if req.EndTime != nil {
			fields.EndTime = *req.EndTime
		}
		if req.Interval != nil {
			fields.Interval = *req.Interval
		}
		fields, err = fields.Normalize()
		if err != nil {
			return err
		}

		slots, err := GenerateSlots(fields.StartTime, fields.EndTime, fields.Interval)
		if err != nil {
			return err
		}
		booked, err := tx.ActiveBookedSlots(ctx, current.ID)
		if err != nil {
			return err
		}
		for _, b := range booked {
			if !ContainsSlot(slots, b) {
				return ErrBookedSlotOutside
			}
		}

		next := *current
		next.StartTime = fields.StartTime
		next.EndTime = fields.EndTime
		next.Interval = fields.Interval
		updated, err = tx.UpdateTimes(ctx, &next)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("schedule_id", id.String()).
		Str("start_time", updated.StartTime).
		Str("end_time", updated.EndTime).
		Int("interval", updated.Interval).
		Msg("schedule updated")

	return updated, nil
}

// Delete removes a schedule owned by clinicID. Schedules with scheduled
// appointments cannot be deleted; past and canceled appointments keep their
// rows with the schedule reference cleared.
func (s *Service) Delete(ctx context.Context, clinicID, id uuid.UUID) error {
	err := s.repo.WithTx(ctx, func(tx Repository) error {
		if _, err := tx.GetForClinic(ctx, clinicID, id); err != nil {
			return err
		}
		booked, err := tx.ActiveBookedSlots(ctx, id)
		if err != nil {
			return err
		}
		if len(booked) > 0 {
			return ErrActiveAppointments
		}
		return tx.Delete(ctx, clinicID, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("schedule_id", id.String()).Str("clinic_id", clinicID.String()).Msg("schedule deleted")
	return nil
}

// ListByDoctor returns a doctor's schedules in one calendar month.
func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, year, month int) (*Monthly, error) {
	from, to, err := monthBounds(year, month)
	if err != nil {
		return nil, err
	}
	list, err := s.repo.ListByDoctor(ctx, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	return summarize(list), nil
}

// ListByClinic returns a clinic's schedules in one calendar month, optionally
// restricted to doctorIDs.
func (s *Service) ListByClinic(ctx context.Context, clinicID uuid.UUID, year, month int, doctorIDs []uuid.UUID) (*Monthly, error) {
	from, to, err := monthBounds(year, month)
	if err != nil {
		return nil, err
	}
	list, err := s.repo.ListByClinic(ctx, clinicID, from, to, uniqueIDs(doctorIDs))
	if err != nil {
		return nil, err
	}
	return summarize(list), nil
}

func summarize(list []Schedule) *Monthly {
	m := &Monthly{Schedules: list}
	if m.Schedules == nil {
		m.Schedules = []Schedule{}
	}
	for _, sched := range list {
		m.TotalHours += sched.Hours()
	}
	return m
}

func monthBounds(year, month int) (time.Time, time.Time, error) {
	if month < 1 || month > 12 {
		return time.Time{}, time.Time{}, ErrInvalidMonth
	}
	if year < 1 || year > 9999 {
		return time.Time{}, time.Time{}, apperr.Validation("year %d out of range", year)
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0), nil
}

func collectDates(req CreateRequest) ([]time.Time, error) {
	seen := make(map[time.Time]bool)
	var dates []time.Time
	add := func(d time.Time) {
		d = clock.DateOf(d)
		if !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}

	for _, d := range req.Dates {
		add(d)
	}
	if req.Range != nil {
		expanded, err := ExpandDates(*req.Range)
		if err != nil {
			return nil, err
		}
		for _, d := range expanded {
			add(d)
		}
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
