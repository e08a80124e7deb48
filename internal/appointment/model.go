package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-booking/internal/apperr"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

type VisitType string

const (
	VisitPrivate VisitType = "private"
	VisitInsured VisitType = "insured"
)

func (v VisitType) Valid() bool {
	return v == VisitPrivate || v == VisitInsured
}

const (
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentCanceled  = "APPOINTMENT_CANCELED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
	EventAppointmentDeleted   = "APPOINTMENT_DELETED"
)

var (
	ErrAppointmentNotFound = apperr.NotFound("appointment")
	ErrPatientNotFound     = apperr.NotFound("patient")
	ErrSlotNotAvailable    = apperr.Validation("slot not available")
	ErrSlotNotFree         = apperr.Conflict("slot not free")
	ErrInvalidVisitType    = apperr.Validation("visit_type must be private or insured")
	ErrInvalidStatus       = apperr.Validation("new appointments must be scheduled")
	ErrInvalidTransition   = apperr.Conflict("invalid status transition")
	ErrStatusChanged       = apperr.Conflict("appointment status changed")
	ErrNotOwner            = apperr.Authorization("not allowed to access this appointment")
)

// Appointment is a booked slot. ScheduleID is nil once the schedule is
// deleted; Date and TimeSlot keep the booking readable after that.
type Appointment struct {
	ID              uuid.UUID  `json:"id"`
	ScheduleID      *uuid.UUID `json:"schedule_id"`
	DoctorID        uuid.UUID  `json:"doctor_id"`
	ClinicID        uuid.UUID  `json:"clinic_id"`
	PatientID       uuid.UUID  `json:"patient_id"`
	DoctorServiceID uuid.UUID  `json:"doctor_service_id"`
	Date            time.Time  `json:"date"`
	TimeSlot        string     `json:"time_slot"`
	FirstVisit      bool       `json:"first_visit"`
	VisitType       VisitType  `json:"visit_type"`
	Status          Status     `json:"status"`
	Description     string     `json:"description"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// BookRequest is a patient's booking intent. Status may be empty or
// "scheduled"; anything else is rejected.
type BookRequest struct {
	ClinicID        uuid.UUID
	DoctorID        uuid.UUID
	DoctorServiceID uuid.UUID
	PatientID       uuid.UUID
	Date            time.Time
	TimeSlot        string
	FirstVisit      bool
	VisitType       VisitType
	Status          Status
	Description     string
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
