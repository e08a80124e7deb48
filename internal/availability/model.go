// Package availability answers "which doctors have open slots" searches by
// subtracting booked slots from generated ones.
package availability

import (
	"time"

	"github.com/google/uuid"
)

// MaxDatesPerDoctor caps the dates listed per doctor in one search result.
const MaxDatesPerDoctor = 2

// Filter narrows a search. Nil fields do not filter. City and Specialty match
// case-insensitive substrings.
type Filter struct {
	City      *string
	Specialty *string
	Date      *time.Time
	Page      int
	Limit     int
}

type ClinicInfo struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	City    string    `json:"city"`
	Address string    `json:"address"`
}

type ScheduleSlots struct {
	ScheduleID uuid.UUID `json:"schedule_id"`
	Date       time.Time `json:"date"`
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
	Interval   int       `json:"interval"`
	Slots      []string  `json:"slots"`
}

type DoctorAvailability struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Specialty string          `json:"specialty"`
	Clinic    ClinicInfo      `json:"clinic"`
	Schedules []ScheduleSlots `json:"schedules"`
}

type Result struct {
	TotalCount int                  `json:"total_count"`
	Pages      int                  `json:"pages"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
	Doctors    []DoctorAvailability `json:"doctors"`
}
