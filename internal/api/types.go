package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-booking/internal/appointment"
	"github.com/hackgods/clinic-appointment-booking/internal/availability"
	"github.com/hackgods/clinic-appointment-booking/internal/schedule"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Schedules

type DateRangeRequest struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Weekdays []int  `json:"weekdays,omitempty"`
}

type CreateSchedulesRequest struct {
	DoctorIDs []string          `json:"doctor_ids"`
	Dates     []string          `json:"dates"`
	Range     *DateRangeRequest `json:"range,omitempty"`
	StartTime string            `json:"start_time"`
	EndTime   string            `json:"end_time"`
	Interval  int               `json:"interval"`
}

type UpdateScheduleRequest struct {
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Interval  *int    `json:"interval"`
}

type ScheduleResponse struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	ClinicID  uuid.UUID `json:"clinic_id"`
	Date      string    `json:"date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Interval  int       `json:"interval"`
	Slots     []string  `json:"slots"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ScheduleDetailResponse struct {
	ScheduleResponse
	Doctor schedule.DoctorSummary `json:"doctor"`
	Clinic schedule.ClinicSummary `json:"clinic"`
}

type MonthlySchedulesResponse struct {
	Year       int                `json:"year"`
	Month      int                `json:"month"`
	TotalHours float64            `json:"total_hours"`
	Schedules  []ScheduleResponse `json:"schedules"`
}

func toScheduleResponse(s schedule.Schedule) ScheduleResponse {
	slots, err := s.Slots()
	if err != nil {
		slots = []string{}
	}
	return ScheduleResponse{
		ID:        s.ID,
		DoctorID:  s.DoctorID,
		ClinicID:  s.ClinicID,
		Date:      formatDate(s.Date),
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Interval:  s.Interval,
		Slots:     slots,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func toScheduleResponses(list []schedule.Schedule) []ScheduleResponse {
	out := make([]ScheduleResponse, 0, len(list))
	for _, s := range list {
		out = append(out, toScheduleResponse(s))
	}
	return out
}

// Appointments

type BookAppointmentRequest struct {
	ClinicID        string `json:"clinic_id"`
	DoctorID        string `json:"doctor_id"`
	DoctorServiceID string `json:"doctor_service_id"`
	Date            string `json:"date"`
	TimeSlot        string `json:"time_slot"`
	FirstVisit      bool   `json:"first_visit"`
	VisitType       string `json:"visit_type"`
	Status          string `json:"status,omitempty"`
	Description     string `json:"description"`
}

type AppointmentResponse struct {
	ID              uuid.UUID  `json:"id"`
	ScheduleID      *uuid.UUID `json:"schedule_id"`
	DoctorID        uuid.UUID  `json:"doctor_id"`
	ClinicID        uuid.UUID  `json:"clinic_id"`
	PatientID       uuid.UUID  `json:"patient_id"`
	DoctorServiceID uuid.UUID  `json:"doctor_service_id"`
	Date            string     `json:"date"`
	TimeSlot        string     `json:"time_slot"`
	FirstVisit      bool       `json:"first_visit"`
	VisitType       string     `json:"visit_type"`
	Status          string     `json:"status"`
	Description     string     `json:"description"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		ScheduleID:      a.ScheduleID,
		DoctorID:        a.DoctorID,
		ClinicID:        a.ClinicID,
		PatientID:       a.PatientID,
		DoctorServiceID: a.DoctorServiceID,
		Date:            formatDate(a.Date),
		TimeSlot:        a.TimeSlot,
		FirstVisit:      a.FirstVisit,
		VisitType:       string(a.VisitType),
		Status:          string(a.Status),
		Description:     a.Description,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

// Availability

type AvailableScheduleResponse struct {
	ScheduleID uuid.UUID `json:"schedule_id"`
	Date       string    `json:"date"`
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
	Interval   int       `json:"interval"`
	Slots      []string  `json:"slots"`
}

type AvailableDoctorResponse struct {
	ID        uuid.UUID                   `json:"id"`
	Name      string                      `json:"name"`
	Specialty string                      `json:"specialty"`
	Clinic    availability.ClinicInfo     `json:"clinic"`
	Schedules []AvailableScheduleResponse `json:"schedules"`
}

type AvailabilityResponse struct {
	TotalCount int                       `json:"total_count"`
	Pages      int                       `json:"pages"`
	Page       int                       `json:"page"`
	Limit      int                       `json:"limit"`
	Doctors    []AvailableDoctorResponse `json:"doctors"`
}

func toAvailabilityResponse(res *availability.Result) AvailabilityResponse {
	out := AvailabilityResponse{
		TotalCount: res.TotalCount,
		Pages:      res.Pages,
		Page:       res.Page,
		Limit:      res.Limit,
		Doctors:    make([]AvailableDoctorResponse, 0, len(res.Doctors)),
	}
	for _, d := range res.Doctors {
		doc := AvailableDoctorResponse{
			ID:        d.ID,
			Name:      d.Name,
			Specialty: d.Specialty,
			Clinic:    d.Clinic,
			Schedules: make([]AvailableScheduleResponse, 0, len(d.Schedules)),
		}
		for _, s := range d.Schedules {
			doc.Schedules = append(doc.Schedules, AvailableScheduleResponse{
				ScheduleID: s.ScheduleID,
				Date:       formatDate(s.Date),
				StartTime:  s.StartTime,
				EndTime:    s.EndTime,
				Interval:   s.Interval,
				Slots:      s.Slots,
			})
		}
		out.Doctors = append(out.Doctors, doc)
	}
	return out
}
