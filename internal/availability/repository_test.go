package availability

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPgBookedSlotsGroupsBySchedule(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	a, b := uuid.New(), uuid.New()

	mock.ExpectQuery("FROM appointments").
		WithArgs([]uuid.UUID{a, b}).
		WillReturnRows(pgxmock.NewRows([]string{"schedule_id", "time_slot"}).
			AddRow(a, "09:00").
			AddRow(a, "10:30").
			AddRow(b, "14:00"))

	booked, err := repo.BookedSlots(context.Background(), []uuid.UUID{a, b})
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:30"}, booked[a])
	assert.Equal(t, []string{"14:00"}, booked[b])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgBookedSlotsSkipsEmptyInput(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	booked, err := NewPgRepository(mock).BookedSlots(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, booked)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCandidatesScansRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	from := time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, DefaultHorizonDays)
	city := "Paris"
	doctorID, clinicID, scheduleID := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery("FROM schedules s").
		WithArgs(strPtr("%Paris%"), pgxmock.AnyArg(), pgxmock.AnyArg(), &from, &to).
		WillReturnRows(pgxmock.NewRows([]string{
			"d.id", "d.name", "d.specialty", "c.id", "c.name", "c.city", "c.address",
			"s.id", "s.schedule_date", "start_time", "end_time", "interval_min",
		}).AddRow(doctorID, "Dr. Adams", "Cardiology", clinicID, "Rive Gauche", "Paris", "1 rue X",
			scheduleID, from, "09:00", "12:00", 30))

	got, err := repo.Candidates(context.Background(), Query{City: &city, From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, doctorID, got[0].Schedule.DoctorID)
	assert.Equal(t, clinicID, got[0].Schedule.ClinicID)
	assert.Equal(t, 30, got[0].Schedule.Interval)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContainsPatternEscapesWildcards(t *testing.T) {
	tests := []struct {
		name string
		in   *string
		want *string
	}{
		{"absent", nil, nil},
		{"plain", strPtr("Lyon"), strPtr("%Lyon%")},
		{"percent and underscore", strPtr("50%_off"), strPtr(`%50\%\_off%`)},
		{"backslash", strPtr(`a\b`), strPtr(`%a\\b%`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, containsPattern(tt.in))
		})
	}
}
