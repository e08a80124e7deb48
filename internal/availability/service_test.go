package availability

import (
	"context"
	"math"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-appointment-booking/internal/clock"
	"github.com/hackgods/clinic-appointment-booking/internal/schedule"
)

type memRepo struct {
	candidates []Candidate
	booked     map[uuid.UUID][]string
}

func contains(field string, filter *string) bool {
	return filter == nil || strings.Contains(strings.ToLower(field), strings.ToLower(*filter))
}

func (m *memRepo) Candidates(_ context.Context, q Query) ([]Candidate, error) {
	var out []Candidate
	for _, c := range m.candidates {
		if !contains(c.Clinic.City, q.City) || !contains(c.Specialty, q.Specialty) {
			continue
		}
		if q.Date != nil && !c.Schedule.Date.Equal(*q.Date) {
			continue
		}
		if q.From != nil && c.Schedule.Date.Before(*q.From) {
			continue
		}
		if q.To != nil && c.Schedule.Date.After(*q.To) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.DoctorName != b.DoctorName {
			return a.DoctorName < b.DoctorName
		}
		if a.DoctorID != b.DoctorID {
			return a.DoctorID.String() < b.DoctorID.String()
		}
		return a.Schedule.Date.Before(b.Schedule.Date)
	})
	return out, nil
}

func (m *memRepo) BookedSlots(_ context.Context, ids []uuid.UUID) (map[uuid.UUID][]string, error) {
	out := make(map[uuid.UUID][]string)
	for _, id := range ids {
		if slots, ok := m.booked[id]; ok {
			out[id] = slots
		}
	}
	return out, nil
}

type doctor struct {
	id        uuid.UUID
	name      string
	specialty string
	clinic    ClinicInfo
}

func (m *memRepo) addSchedule(d doctor, date time.Time, start, end string, interval int) uuid.UUID {
	s := schedule.Schedule{
		ID: uuid.New(), DoctorID: d.id, ClinicID: d.clinic.ID, Date: date,
		StartTime: start, EndTime: end, Interval: interval,
	}
	m.candidates = append(m.candidates, Candidate{
		DoctorID: d.id, DoctorName: d.name, Specialty: d.specialty, Clinic: d.clinic, Schedule: s,
	})
	return s.ID
}

var (
	today   = time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC)
	paris   = ClinicInfo{ID: uuid.New(), Name: "Rive Gauche", City: "Paris"}
	lyon    = ClinicInfo{ID: uuid.New(), Name: "Presqu'ile", City: "Lyon"}
	nowFunc = clock.Fixed(today.Add(8 * time.Hour))
)

func newDoctor(name, specialty string, c ClinicInfo) doctor {
	return doctor{id: uuid.New(), name: name, specialty: specialty, clinic: c}
}

func strPtr(s string) *string { return &s }

func TestSearchSubtractsBookedSlots(t *testing.T) {
	repo := &memRepo{booked: map[uuid.UUID][]string{}}
	d := newDoctor("Dr. Adams", "Cardiology", paris)
	sid := repo.addSchedule(d, today, "09:00", "10:30", 30)
	repo.booked[sid] = []string{"09:30"}

	res, err := NewService(repo, nowFunc).Search(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, res.Doctors, 1)
	require.Len(t, res.Doctors[0].Schedules, 1)
	assert.Equal(t, []string{"09:00", "10:00"}, res.Doctors[0].Schedules[0].Slots)
	assert.Equal(t, paris, res.Doctors[0].Clinic)
}

func TestSearchFullyBookedSchedule(t *testing.T) {
	repo := &memRepo{booked: map[uuid.UUID][]string{}}
	d := newDoctor("Dr. Brown", "Dermatology", paris)
	sid := repo.addSchedule(d, today, "09:00", "10:00", 30)
	repo.booked[sid] = []string{"09:00", "09:30"}
	svc := NewService(repo, nowFunc)

	// Without a date the doctor has nothing to offer.
	res, err := svc.Search(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Zero(t, res.TotalCount)
	assert.NotNil(t, res.Doctors)
	assert.Empty(t, res.Doctors)

	// With a date the schedule is listed with no slots.
	date := today
	res, err = svc.Search(context.Background(), Filter{Date: &date})
	require.NoError(t, err)
	require.Len(t, res.Doctors, 1)
	assert.Empty(t, res.Doctors[0].Schedules[0].Slots)
	assert.NotNil(t, res.Doctors[0].Schedules[0].Slots)
}

func TestSearchKeepsTwoNearestUpcomingDates(t *testing.T) {
	repo := &memRepo{booked: map[uuid.UUID][]string{}}
	d := newDoctor("Dr. Chen", "Neurology", lyon)
	repo.addSchedule(d, today.AddDate(0, 0, -1), "09:00", "10:00", 30)
	repo.addSchedule(d, today.AddDate(0, 0, 3), "09:00", "10:00", 30)
	full := repo.addSchedule(d, today, "09:00", "10:00", 30)
	repo.addSchedule(d, today.AddDate(0, 0, 1), "09:00", "10:00", 30)
	repo.addSchedule(d, today.AddDate(0, 0, 2), "09:00", "10:00", 30)
	repo.booked[full] = []string{"09:00", "09:30"}

	res, err := NewService(repo, nowFunc).Search(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, res.Doctors, 1)
	got := res.Doctors[0].Schedules
	require.Len(t, got, MaxDatesPerDoctor)
	assert.Equal(t, today.AddDate(0, 0, 1), got[0].Date)
	assert.Equal(t, today.AddDate(0, 0, 2), got[1].Date)
}

func TestSearchFilters(t *testing.T) {
	repo := &memRepo{booked: map[uuid.UUID][]string{}}
	adams := newDoctor("Dr. Adams", "Cardiology", paris)
	brown := newDoctor("Dr. Brown", "Pediatric Cardiology", lyon)
	chen := newDoctor("Dr. Chen", "Neurology", paris)
	for _, d := range []doctor{adams, brown, chen} {
		repo.addSchedule(d, today, "09:00", "10:00", 30)
	}
	repo.addSchedule(chen, today.AddDate(0, 0, 1), "14:00", "15:00", 30)
	svc := NewService(repo, nowFunc)

	res, err := svc.Search(context.Background(), Filter{Specialty: strPtr("cardio")})
	require.NoError(t, err)
	require.Len(t, res.Doctors, 2)
	assert.Equal(t, "Dr. Adams", res.Doctors[0].Name)
	assert.Equal(t, "Dr. Brown", res.Doctors[1].Name)

	res, err = svc.Search(context.Background(), Filter{City: strPtr("PAR"), Specialty: strPtr("neuro")})
	require.NoError(t, err)
	require.Len(t, res.Doctors, 1)
	assert.Equal(t, chen.id, res.Doctors[0].ID)
	assert.Len(t, res.Doctors[0].Schedules, 2)

	tomorrow := today.AddDate(0, 0, 1)
	res, err = svc.Search(context.Background(), Filter{Date: &tomorrow})
	require.NoError(t, err)
	require.Len(t, res.Doctors, 1)
	assert.Equal(t, "14:00", res.Doctors[0].Schedules[0].Slots[0])

	res, err = svc.Search(context.Background(), Filter{City: strPtr("Berlin")})
	require.NoError(t, err)
	assert.Zero(t, res.TotalCount)
	assert.Zero(t, res.Pages)
}

func TestSearchPaginatesDoctors(t *testing.T) {
	repo := &memRepo{booked: map[uuid.UUID][]string{}}
	for _, name := range []string{"Dr. E", "Dr. A", "Dr. C", "Dr. B", "Dr. D"} {
		repo.addSchedule(newDoctor(name, "Family Medicine", paris), today, "09:00", "10:00", 30)
	}
	svc := NewService(repo, nowFunc)

	res, err := svc.Search(context.Background(), Filter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, res.TotalCount)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 2, res.Page)
	require.Len(t, res.Doctors, 2)
	assert.Equal(t, "Dr. C", res.Doctors[0].Name)
	assert.Equal(t, "Dr. D", res.Doctors[1].Name)

	res, err = svc.Search(context.Background(), Filter{Page: 3, Limit: 2})
	require.NoError(t, err)
	require.Len(t, res.Doctors, 1)
	assert.Equal(t, "Dr. E", res.Doctors[0].Name)

	res, err = svc.Search(context.Background(), Filter{Page: 9, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, res.Doctors)
	assert.Equal(t, 5, res.TotalCount)
}

func TestSearchHugePageIsEmpty(t *testing.T) {
	repo := &memRepo{booked: map[uuid.UUID][]string{}}
	repo.addSchedule(newDoctor("Dr. A", "Family Medicine", paris), today, "09:00", "10:00", 30)
	svc := NewService(repo, nowFunc)

	res, err := svc.Search(context.Background(), Filter{Page: math.MaxInt, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, res.Page)
	assert.Equal(t, 1, res.TotalCount)
	assert.NotNil(t, res.Doctors)
	assert.Empty(t, res.Doctors)
}

func TestSearchUndatedStopsAtHorizon(t *testing.T) {
	repo := &memRepo{booked: map[uuid.UUID][]string{}}
	d := newDoctor("Dr. Far", "Oncology", lyon)
	far := today.AddDate(0, 0, 30)
	repo.addSchedule(d, far, "09:00", "10:00", 30)

	res, err := NewService(repo, nowFunc, WithHorizon(7)).Search(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Zero(t, res.TotalCount)

	res, err = NewService(repo, nowFunc).Search(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalCount)

	// An explicit date is not bounded by the horizon.
	res, err = NewService(repo, nowFunc, WithHorizon(7)).Search(context.Background(), Filter{Date: &far})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalCount)
}

func TestSearchPageDefaults(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo, nowFunc)

	res, err := svc.Search(context.Background(), Filter{Page: -1, Limit: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, DefaultLimit, res.Limit)

	res, err = svc.Search(context.Background(), Filter{Limit: 5000})
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, res.Limit)

	custom := NewService(repo, nowFunc, WithLimits(5, 20))
	res, err = custom.Search(context.Background(), Filter{Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, 20, res.Limit)
}
