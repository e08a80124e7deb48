package schedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-booking/internal/apperr"
	"github.com/hackgods/clinic-appointment-booking/internal/clock"
)

var (
	ErrScheduleNotFound      = apperr.NotFound("schedule")
	ErrDoctorNotFound        = apperr.NotFound("doctor")
	ErrScheduleExists        = apperr.Conflict("schedule exists")
	ErrActiveAppointments    = apperr.Conflict("schedule has active appointments")
	ErrBookedSlotOutside     = apperr.Conflict("booked slot outside schedule")
	ErrInvalidInterval       = apperr.Validation("interval must be greater than zero")
	ErrInvalidTimeRange      = apperr.Validation("start_time must be before end_time")
	ErrNoDoctors             = apperr.Validation("at least one doctor is required")
	ErrNoDates               = apperr.Validation("at least one date is required")
	ErrBatchTooLarge         = apperr.Validation("too many schedules in one request")
	ErrInvalidMonth          = apperr.Validation("month must be between 1 and 12")
	ErrInvalidDateRangeOrder = apperr.Validation("range end must not be before range start")
)

// Schedule is one doctor's working window on one date in one clinic.
// Times are "HH:MM"; Date is midnight UTC of the calendar day.
type Schedule struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	ClinicID  uuid.UUID `json:"clinic_id"`
	Date      time.Time `json:"date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Interval  int       `json:"interval"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Slots derives the bookable slot starts of s.
func (s Schedule) Slots() ([]string, error) {
	return GenerateSlots(s.StartTime, s.EndTime, s.Interval)
}

// Hours is the length of the working window.
func (s Schedule) Hours() float64 {
	start, err := clock.ToMinutes(s.StartTime)
	if err != nil {
		return 0
	}
	end, err := clock.ToMinutes(s.EndTime)
	if err != nil || end <= start {
		return 0
	}
	return float64(end-start) / 60
}

// Fields are the values shared by every schedule in a batch.
type Fields struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Interval  int    `json:"interval"`
}

// Normalize validates f and returns it with canonical "HH:MM" times.
func (f Fields) Normalize() (Fields, error) {
	start, err := clock.Normalize(f.StartTime)
	if err != nil {
		return Fields{}, err
	}
	end, err := clock.Normalize(f.EndTime)
	if err != nil {
		return Fields{}, err
	}
	if f.Interval <= 0 {
		return Fields{}, ErrInvalidInterval
	}
	if start >= end {
		return Fields{}, ErrInvalidTimeRange
	}
	return Fields{StartTime: start, EndTime: end, Interval: f.Interval}, nil
}

// DateRange selects every date in [From, To] falling on one of Weekdays
// (0 = Sunday). An empty Weekdays selects every day.
type DateRange struct {
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Weekdays []int     `json:"weekdays,omitempty"`
}

type CreateRequest struct {
	DoctorIDs []uuid.UUID
	Dates     []time.Time
	Range     *DateRange
	Fields    Fields
}

// UpdateRequest carries optional changes; nil fields keep their value.
type UpdateRequest struct {
	StartTime *string
	EndTime   *string
	Interval  *int
}

type DoctorSummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Specialty string    `json:"specialty"`
}

type ClinicSummary struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	City    string    `json:"city"`
	Address string    `json:"address"`
}

// Detail is a schedule with its doctor and clinic summaries.
type Detail struct {
	Schedule
	Doctor DoctorSummary `json:"doctor"`
	Clinic ClinicSummary `json:"clinic"`
}

// Monthly is the result of a calendar month listing.
type Monthly struct {
	TotalHours float64    `json:"total_hours"`
	Schedules  []Schedule `json:"schedules"`
}

// Key identifies a schedule by its uniqueness columns.
type Key struct {
	DoctorID uuid.UUID
	Date     time.Time
}
