package availability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hackgods/clinic-appointment-booking/internal/clock"
	"github.com/hackgods/clinic-appointment-booking/internal/metrics"
)

var tracer = otel.Tracer("clinic.internal.availability")

const (
	DefaultLimit = 10
	MaxLimit     = 100

	// DefaultHorizonDays bounds how far ahead an undated search looks.
	DefaultHorizonDays = 90
)

type Service struct {
	repo         Repository
	clock        clock.Clock
	metrics      *metrics.BookingMetrics
	logger       zerolog.Logger
	defaultLimit int
	maxLimit     int
	horizonDays  int
}

type Option func(*Service)

func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithLimits overrides the page size default and cap.
func WithLimits(defaultLimit, maxLimit int) Option {
	return func(s *Service) {
		if defaultLimit > 0 && maxLimit >= defaultLimit {
			s.defaultLimit = defaultLimit
			s.maxLimit = maxLimit
		}
	}
}

// WithHorizon overrides how many days past today an undated search covers.
func WithHorizon(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.horizonDays = days
		}
	}
}

func NewService(repo Repository, c clock.Clock, opts ...Option) *Service {
	if repo == nil {
		panic("availability: repository required")
	}
	if c == nil {
		c = clock.System{}
	}
	s := &Service{
		repo:         repo,
		clock:        c,
		logger:       zerolog.Nop(),
		defaultLimit: DefaultLimit,
		maxLimit:     MaxLimit,
		horizonDays:  DefaultHorizonDays,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search lists doctors with their open slots, one page of doctors at a time.
// With a Date filter the schedule on that date is listed even when fully
// booked; without one only upcoming schedules with an open slot count, at most
// MaxDatesPerDoctor per doctor.
func (s *Service) Search(ctx context.Context, f Filter) (*Result, error) {
	started := time.Now()
	ctx, span := tracer.Start(ctx, "availability.Search", trace.WithAttributes(
		attribute.Bool("filter.date", f.Date != nil),
	))
	defer func() {
		span.End()
		s.metrics.ObserveSearchLatency(time.Since(started).Seconds())
	}()

	page, limit := s.pageParams(f.Page, f.Limit)

	q := Query{City: trimmed(f.City), Specialty: trimmed(f.Specialty)}
	if f.Date != nil {
		d := clock.DateOf(*f.Date)
		q.Date = &d
	} else {
		today := clock.DateOf(s.clock.Now())
		until := today.AddDate(0, 0, s.horizonDays)
		q.From = &today
		q.To = &until
	}

	candidates, err := s.repo.Candidates(ctx, q)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("search availability: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.Schedule.ID)
	}
	booked, err := s.repo.BookedSlots(ctx, ids)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("search availability: %w", err)
	}

	doctors := s.group(candidates, booked, f.Date != nil)
	total := len(doctors)

	res := &Result{
		TotalCount: total,
		Pages:      (total + limit - 1) / limit,
		Page:       page,
		Limit:      limit,
		Doctors:    []DoctorAvailability{},
	}
	// page is compared before multiplying so huge values cannot overflow.
	if page <= res.Pages {
		offset := (page - 1) * limit
		end := min(offset+limit, total)
		res.Doctors = doctors[offset:end]
	}

	span.SetAttributes(attribute.Int("result.total", total))
	return res, nil
}

// group folds the ordered candidates into per-doctor entries.
func (s *Service) group(candidates []Candidate, booked map[uuid.UUID][]string, keepFull bool) []DoctorAvailability {
	var doctors []DoctorAvailability
	index := make(map[uuid.UUID]int)

	for _, c := range candidates {
		slots, err := c.Schedule.Slots()
		if err != nil {
			s.logger.Warn().Err(err).Str("schedule_id", c.Schedule.ID.String()).Msg("skip schedule with invalid window")
			continue
		}
		open := subtract(slots, booked[c.Schedule.ID])
		if len(open) == 0 && !keepFull {
			continue
		}

		i, ok := index[c.DoctorID]
		if !ok {
			i = len(doctors)
			index[c.DoctorID] = i
			doctors = append(doctors, DoctorAvailability{
				ID:        c.DoctorID,
				Name:      c.DoctorName,
				Specialty: c.Specialty,
				Clinic:    c.Clinic,
			})
		}
		if len(doctors[i].Schedules) >= MaxDatesPerDoctor {
			continue
		}
		doctors[i].Schedules = append(doctors[i].Schedules, ScheduleSlots{
			ScheduleID: c.Schedule.ID,
			Date:       c.Schedule.Date,
			StartTime:  c.Schedule.StartTime,
			EndTime:    c.Schedule.EndTime,
			Interval:   c.Schedule.Interval,
			Slots:      open,
		})
	}
	return doctors
}

func (s *Service) pageParams(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	return page, limit
}

func subtract(slots, taken []string) []string {
	held := make(map[string]bool, len(taken))
	for _, t := range taken {
		held[t] = true
	}
	open := make([]string, 0, len(slots))
	for _, slot := range slots {
		if !held[slot] {
			open = append(open, slot)
		}
	}
	return open
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
