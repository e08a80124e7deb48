package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/hackgods/clinic-appointment-booking/internal/clock"
)

// sweepBatch bounds how many appointments one pass loads at a time.
const sweepBatch = 500

// CompletePast marks every scheduled appointment whose date and slot are not
// after now as completed and returns how many rows it moved. Rows another
// process transitioned first are skipped, so overlapping runs are harmless.
func (s *Service) CompletePast(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "appointment.CompletePast")
	defer span.End()

	now := s.clock.Now()
	today := clock.DateOf(now)
	nowSlot, err := clock.FromMinutes(now.Hour()*60 + now.Minute())
	if err != nil {
		return 0, err
	}

	completed := 0
	for {
		due, err := s.repo.FindDuePast(ctx, today, nowSlot, sweepBatch)
		if err != nil {
			span.RecordError(err)
			return completed, fmt.Errorf("find past appointments: %w", err)
		}

		moved := 0
		for _, appt := range due {
			if err := ctx.Err(); err != nil {
				return completed, err
			}
			_, err := s.repo.UpdateStatus(ctx, appt.ID, StatusScheduled, StatusCompleted)
			if errors.Is(err, ErrStatusChanged) {
				continue
			}
			if err != nil {
				s.logger.Error().Err(err).Str("appointment_id", appt.ID.String()).Msg("complete appointment")
				continue
			}
			moved++
			s.metrics.ObserveTransition(string(StatusCompleted))
			s.logEvent(ctx, appt.ID, EventAppointmentCompleted, map[string]any{"reason": "sweep"})
		}
		completed += moved

		// A short page means everything due was seen. A page where nothing
		// moved would come back unchanged, so stop there too.
		if len(due) < sweepBatch || moved == 0 {
			break
		}
	}

	s.metrics.AddSweepCompleted(completed)
	if completed > 0 {
		s.logger.Info().Int("completed", completed).Str("as_of", now.Format("2006-01-02 15:04")).Msg("past appointments completed")
	}
	return completed, nil
}
