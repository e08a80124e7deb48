package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hackgods/clinic-appointment-booking/internal/apperr"
	"github.com/hackgods/clinic-appointment-booking/internal/auth"
	"github.com/hackgods/clinic-appointment-booking/internal/clock"
	"github.com/hackgods/clinic-appointment-booking/internal/directory"
	"github.com/hackgods/clinic-appointment-booking/internal/metrics"
	redisclient "github.com/hackgods/clinic-appointment-booking/internal/redis"
	"github.com/hackgods/clinic-appointment-booking/internal/schedule"
)

var tracer = otel.Tracer("clinic.internal.appointment")

type Service struct {
	repo      Repository
	directory Directory
	schedules Schedules
	locker    redisclient.Locker
	clock     clock.Clock
	metrics   *metrics.BookingMetrics
	logger    zerolog.Logger
}

type Option func(*Service)

func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(repo Repository, dir Directory, schedules Schedules, locker redisclient.Locker, opts ...Option) *Service {
	if repo == nil || dir == nil || schedules == nil {
		panic("appointment: repository, directory and schedules required")
	}
	if locker == nil {
		locker = redisclient.NoopLocker{}
	}
	s := &Service{
		repo:      repo,
		directory: dir,
		schedules: schedules,
		locker:    locker,
		clock:     clock.System{},
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Book reserves a slot for a patient. Checks run in a fixed order and stop at
// the first failure; the final availability check and the insert happen under
// the slot lock inside one transaction.
func (s *Service) Book(ctx context.Context, req BookRequest) (created *Appointment, err error) {
	ctx, span := tracer.Start(ctx, "appointment.Book", trace.WithAttributes(
		attribute.String("clinic_id", req.ClinicID.String()),
		attribute.String("doctor_id", req.DoctorID.String()),
		attribute.String("time_slot", req.TimeSlot),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		s.metrics.ObserveBooking(bookingOutcome(err))
	}()

	slot, err := validateBooking(req)
	if err != nil {
		return nil, err
	}

	if _, err := s.directory.GetDoctorInClinic(ctx, req.ClinicID, req.DoctorID); err != nil {
		return nil, err
	}
	svc, err := s.directory.GetDoctorServiceInClinic(ctx, req.ClinicID, req.DoctorServiceID)
	if err != nil {
		return nil, err
	}
	if svc.DoctorID != req.DoctorID {
		return nil, directory.ErrDoctorServiceNotFound
	}

	date := clock.DateOf(req.Date)
	sched, err := s.schedules.FindForDoctorOnDate(ctx, req.ClinicID, req.DoctorID, date)
	if err != nil {
		return nil, err
	}
	if err := checkSlotOffered(sched, slot); err != nil {
		return nil, err
	}

	scheduleID := sched.ID
	appt := &Appointment{
		ID:              uuid.New(),
		ScheduleID:      &scheduleID,
		DoctorID:        req.DoctorID,
		ClinicID:        req.ClinicID,
		PatientID:       req.PatientID,
		DoctorServiceID: req.DoctorServiceID,
		Date:            date,
		TimeSlot:        slot,
		FirstVisit:      req.FirstVisit,
		VisitType:       req.VisitType,
		Status:          StatusScheduled,
		Description:     req.Description,
	}

	err = s.locker.WithSlotLock(ctx, sched.ID, slot, func(lockCtx context.Context) error {
		return s.repo.WithTx(lockCtx, func(tx Repository) error {
			// The schedule may have been narrowed or deleted since it was read.
			current, err := tx.LockSchedule(lockCtx, sched.ID)
			if err != nil {
				return err
			}
			if err := checkSlotOffered(current, slot); err != nil {
				return err
			}

			// Inside the critical section re-check the slot
			taken, err := tx.SlotTaken(lockCtx, sched.ID, slot)
			if err != nil {
				return err
			}
			if taken {
				return ErrSlotNotFree
			}
			return tx.Insert(lockCtx, appt)
		})
	})
	if err != nil {
		if _, classified := apperr.KindOf(err); classified {
			return nil, err
		}
		return nil, fmt.Errorf("book appointment: %w", err)
	}

	s.logEvent(ctx, appt.ID, EventAppointmentBooked, map[string]any{
		"schedule_id": sched.ID.String(),
		"patient_id":  appt.PatientID.String(),
		"date":        appt.Date.Format(clock.DateLayout),
		"time_slot":   appt.TimeSlot,
	})
	s.logger.Info().
		Str("appointment_id", appt.ID.String()).
		Str("schedule_id", sched.ID.String()).
		Str("time_slot", appt.TimeSlot).
		Msg("appointment booked")

	return appt, nil
}

func checkSlotOffered(sched *schedule.Schedule, slot string) error {
	slots, err := sched.Slots()
	if err != nil {
		return fmt.Errorf("derive slots for schedule %s: %w", sched.ID, err)
	}
	if !schedule.ContainsSlot(slots, slot) {
		return ErrSlotNotAvailable
	}
	return nil
}

func validateBooking(req BookRequest) (string, error) {
	slot, err := clock.Normalize(req.TimeSlot)
	if err != nil {
		return "", err
	}
	if !req.VisitType.Valid() {
		return "", ErrInvalidVisitType
	}
	if req.Status != "" && req.Status != StatusScheduled {
		return "", ErrInvalidStatus
	}
	return slot, nil
}

func bookingOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeBooked
	case apperr.Is(err, apperr.KindConflict):
		return metrics.OutcomeConflict
	case errors.As(err, new(*apperr.Error)):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}

func canAccess(actor auth.Actor, a *Appointment) bool {
	return actor.IsPatient(a.PatientID) || actor.IsClinic(a.ClinicID)
}

// Get returns an appointment visible to actor.
func (s *Service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(actor, appt) {
		return nil, ErrNotOwner
	}
	return appt, nil
}

// Cancel moves a scheduled appointment to canceled on behalf of its patient or
// its clinic. The freed slot becomes bookable again.
func (s *Service) Cancel(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointment.Cancel", trace.WithAttributes(
		attribute.String("appointment_id", id.String()),
	))
	defer span.End()

	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(actor, appt) {
		return nil, ErrNotOwner
	}
	if !CanTransition(appt.Status, StatusCanceled) {
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.UpdateStatus(ctx, id, StatusScheduled, StatusCanceled)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.metrics.ObserveTransition(string(StatusCanceled))
	s.logEvent(ctx, id, EventAppointmentCanceled, map[string]any{
		"actor_id":   actor.ID.String(),
		"actor_role": string(actor.Role),
	})
	s.logger.Info().Str("appointment_id", id.String()).Str("actor_role", string(actor.Role)).Msg("appointment canceled")

	return updated, nil
}

// Delete removes an appointment regardless of owner or status. Administrative
// tools only; HTTP callers go through DeleteOwned.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logEvent(ctx, id, EventAppointmentDeleted, map[string]any{"reason": "admin"})
	return nil
}

// DeleteOwned removes a scheduled appointment on behalf of its patient or clinic.
func (s *Service) DeleteOwned(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	err := s.repo.WithTx(ctx, func(tx Repository) error {
		appt, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if !canAccess(actor, appt) {
			return ErrNotOwner
		}
		if appt.Status != StatusScheduled {
			return ErrInvalidTransition
		}
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logEvent(ctx, id, EventAppointmentDeleted, map[string]any{
		"actor_id":   actor.ID.String(),
		"actor_role": string(actor.Role),
	})
	s.logger.Info().Str("appointment_id", id.String()).Msg("appointment deleted")
	return nil
}

// ListByPatient retrieves appointments for a specific patient
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}

	list, err := s.repo.ListByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	if list == nil {
		list = []Appointment{}
	}
	return list, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Msg("marshal event payload")
		data = nil
	}

	apptID := appointmentID
	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Warn().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("insert event log")
	}
}
