package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-appointment-booking/internal/apperr"
	"github.com/hackgods/clinic-appointment-booking/internal/auth"
	"github.com/hackgods/clinic-appointment-booking/internal/clock"
	"github.com/hackgods/clinic-appointment-booking/internal/schedule"
)

type ScheduleService interface {
	CreateSchedules(ctx context.Context, clinicID uuid.UUID, req schedule.CreateRequest) ([]schedule.Schedule, error)
	Get(ctx context.Context, id uuid.UUID) (*schedule.Detail, error)
	Update(ctx context.Context, clinicID, id uuid.UUID, req schedule.UpdateRequest) (*schedule.Schedule, error)
	Delete(ctx context.Context, clinicID, id uuid.UUID) error
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, year, month int) (*schedule.Monthly, error)
	ListByClinic(ctx context.Context, clinicID uuid.UUID, year, month int, doctorIDs []uuid.UUID) (*schedule.Monthly, error)
}

type scheduleHandler struct {
	svc    ScheduleService
	clock  clock.Clock
	logger zerolog.Logger
}

func (h *scheduleHandler) create(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := uuidParam(w, r, "clinicID")
	if !ok {
		return
	}
	actor, _ := auth.FromContext(r.Context())
	if !actor.IsClinic(clinicID) {
		writeError(w, http.StatusForbidden, string(apperr.KindAuthorization), "only the clinic can manage its schedules")
		return
	}

	var body CreateSchedulesRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	req, err := body.toCreateRequest()
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	created, err := h.svc.CreateSchedules(r.Context(), clinicID, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"created":   len(created),
		"schedules": toScheduleResponses(created),
	})
}

func (body CreateSchedulesRequest) toCreateRequest() (schedule.CreateRequest, error) {
	doctorIDs, err := parseUUIDs(body.DoctorIDs, "doctor_ids")
	if err != nil {
		return schedule.CreateRequest{}, err
	}
	dates := make([]time.Time, 0, len(body.Dates))
	for _, raw := range body.Dates {
		d, err := clock.ParseDate(raw)
		if err != nil {
			return schedule.CreateRequest{}, err
		}
		dates = append(dates, d)
	}

	req := schedule.CreateRequest{
		DoctorIDs: doctorIDs,
		Dates:     dates,
		Fields: schedule.Fields{
			StartTime: body.StartTime,
			EndTime:   body.EndTime,
			Interval:  body.Interval,
		},
	}
	if body.Range != nil {
		from, err := clock.ParseDate(body.Range.From)
		if err != nil {
			return schedule.CreateRequest{}, err
		}
		to, err := clock.ParseDate(body.Range.To)
		if err != nil {
			return schedule.CreateRequest{}, err
		}
		req.Range = &schedule.DateRange{From: from, To: to, Weekdays: body.Range.Weekdays}
	}
	return req, nil
}

func (h *scheduleHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	detail, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ScheduleDetailResponse{
		ScheduleResponse: toScheduleResponse(detail.Schedule),
		Doctor:           detail.Doctor,
		Clinic:           detail.Clinic,
	})
}

func (h *scheduleHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	actor, _ := auth.FromContext(r.Context())

	var body UpdateScheduleRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	updated, err := h.svc.Update(r.Context(), actor.ID, id, schedule.UpdateRequest{
		StartTime: body.StartTime,
		EndTime:   body.EndTime,
		Interval:  body.Interval,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleResponse(*updated))
}

func (h *scheduleHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	actor, _ := auth.FromContext(r.Context())

	if err := h.svc.Delete(r.Context(), actor.ID, id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id.String()})
}

func (h *scheduleHandler) listByDoctor(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidParam(w, r, "doctorID")
	if !ok {
		return
	}
	year, month, err := yearMonth(r, h.clock.Now())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	monthly, err := h.svc.ListByDoctor(r.Context(), doctorID, year, month)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, monthlyResponse(year, month, monthly))
}

func (h *scheduleHandler) listByClinic(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := uuidParam(w, r, "clinicID")
	if !ok {
		return
	}
	year, month, err := yearMonth(r, h.clock.Now())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	// doctor_id may repeat or carry a comma separated list.
	var raw []string
	for _, v := range r.URL.Query()["doctor_id"] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				raw = append(raw, part)
			}
		}
	}
	doctorIDs, err := parseUUIDs(raw, "doctor_id")
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	monthly, err := h.svc.ListByClinic(r.Context(), clinicID, year, month, doctorIDs)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, monthlyResponse(year, month, monthly))
}

func monthlyResponse(year, month int, m *schedule.Monthly) MonthlySchedulesResponse {
	return MonthlySchedulesResponse{
		Year:       year,
		Month:      month,
		TotalHours: m.TotalHours,
		Schedules:  toScheduleResponses(m.Schedules),
	}
}
