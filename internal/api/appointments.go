package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-appointment-booking/internal/apperr"
	"github.com/hackgods/clinic-appointment-booking/internal/appointment"
	"github.com/hackgods/clinic-appointment-booking/internal/auth"
	"github.com/hackgods/clinic-appointment-booking/internal/availability"
	"github.com/hackgods/clinic-appointment-booking/internal/clock"
)

type AppointmentService interface {
	Book(ctx context.Context, req appointment.BookRequest) (*appointment.Appointment, error)
	Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*appointment.Appointment, error)
	Cancel(ctx context.Context, actor auth.Actor, id uuid.UUID) (*appointment.Appointment, error)
	DeleteOwned(ctx context.Context, actor auth.Actor, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]appointment.Appointment, error)
}

type AvailabilityService interface {
	Search(ctx context.Context, f availability.Filter) (*availability.Result, error)
}

type appointmentHandler struct {
	svc          AppointmentService
	availability AvailabilityService
	logger       zerolog.Logger
}

func (h *appointmentHandler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f availability.Filter

	if v := strings.TrimSpace(q.Get("city")); v != "" {
		f.City = &v
	}
	if v := strings.TrimSpace(q.Get("specialty")); v != "" {
		f.Specialty = &v
	}
	if v := q.Get("date"); v != "" {
		d, err := clock.ParseDate(v)
		if err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
		f.Date = &d
	}
	var err error
	if f.Page, err = queryInt(r, "page", 0); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if f.Limit, err = queryInt(r, "limit", 0); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	res, err := h.availability.Search(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAvailabilityResponse(res))
}

func (h *appointmentHandler) book(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())

	var body BookAppointmentRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	req, err := body.toBookRequest(actor.ID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	appt, err := h.svc.Book(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (body BookAppointmentRequest) toBookRequest(patientID uuid.UUID) (appointment.BookRequest, error) {
	ids, err := parseUUIDs([]string{body.ClinicID, body.DoctorID, body.DoctorServiceID}, "clinic_id, doctor_id, doctor_service_id")
	if err != nil {
		return appointment.BookRequest{}, err
	}
	var date time.Time
	if date, err = clock.ParseDate(body.Date); err != nil {
		return appointment.BookRequest{}, err
	}
	return appointment.BookRequest{
		ClinicID:        ids[0],
		DoctorID:        ids[1],
		DoctorServiceID: ids[2],
		PatientID:       patientID,
		Date:            date,
		TimeSlot:        body.TimeSlot,
		FirstVisit:      body.FirstVisit,
		VisitType:       appointment.VisitType(body.VisitType),
		Status:          appointment.Status(body.Status),
		Description:     body.Description,
	}, nil
}

func (h *appointmentHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	actor, _ := auth.FromContext(r.Context())

	appt, err := h.svc.Get(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *appointmentHandler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	actor, _ := auth.FromContext(r.Context())

	appt, err := h.svc.Cancel(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *appointmentHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	actor, _ := auth.FromContext(r.Context())

	if err := h.svc.DeleteOwned(r.Context(), actor, id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id.String()})
}

func (h *appointmentHandler) listByPatient(w http.ResponseWriter, r *http.Request) {
	patientID, ok := uuidParam(w, r, "patientID")
	if !ok {
		return
	}
	actor, _ := auth.FromContext(r.Context())
	if !actor.IsPatient(patientID) {
		writeError(w, http.StatusForbidden, string(apperr.KindAuthorization), "patients can only list their own appointments")
		return
	}

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	list, err := h.svc.ListByPatient(r.Context(), patientID, limit, offset)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	out := make([]AppointmentResponse, 0, len(list))
	for i := range list {
		out = append(out, toAppointmentResponse(&list[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": out})
}
