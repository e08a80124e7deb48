package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scheduleRowColumns = []string{
	"id", "doctor_id", "clinic_id", "schedule_date",
	"start_time", "end_time", "interval_min", "created_at", "updated_at",
}

func TestPgInsertMapsUniqueViolation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	s := &Schedule{ID: uuid.New(), DoctorID: uuid.New(), ClinicID: uuid.New(), Date: day(3), StartTime: "09:00", EndTime: "12:00", Interval: 30}

	mock.ExpectQuery("INSERT INTO schedules").
		WithArgs(s.ID, s.DoctorID, s.ClinicID, s.Date, "09:00:00", "12:00:00", 30).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: uniqueScheduleConstraint})

	err = repo.Insert(context.Background(), s)
	assert.ErrorIs(t, err, ErrScheduleExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgWithTxRollsBackBatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO schedules").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "09:00:00", "12:00:00", 30).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectQuery("INSERT INTO schedules").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "09:00:00", "12:00:00", 30).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err = repo.WithTx(context.Background(), func(tx Repository) error {
		for i := 0; i < 2; i++ {
			s := &Schedule{ID: uuid.New(), DoctorID: uuid.New(), ClinicID: uuid.New(), Date: day(3 + i), StartTime: "09:00", EndTime: "12:00", Interval: 30}
			if err := tx.Insert(context.Background(), s); err != nil {
				return err
			}
		}
		return nil
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgGetForClinicNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	clinicID, id := uuid.New(), uuid.New()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs(id, clinicID).
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.GetForClinic(context.Background(), clinicID, id)
	assert.ErrorIs(t, err, ErrScheduleNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgListByClinicScansRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	clinicID, doctorID := uuid.New(), uuid.New()
	from := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	now := time.Now()

	mock.ExpectQuery("FROM schedules s").
		WithArgs(clinicID, from, to, []uuid.UUID{}).
		WillReturnRows(pgxmock.NewRows(scheduleRowColumns).
			AddRow(uuid.New(), doctorID, clinicID, time.Date(2026, 11, 3, 0, 0, 0, 0, time.Local), "09:00", "12:00", 30, now, now))

	list, err := repo.ListByClinic(context.Background(), clinicID, from, to, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, day(3), list[0].Date)
	assert.Equal(t, "09:00", list[0].StartTime)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgDeleteMissingRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	clinicID, id := uuid.New(), uuid.New()
	mock.ExpectExec("DELETE FROM schedules").
		WithArgs(id, clinicID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err = repo.Delete(context.Background(), clinicID, id)
	assert.ErrorIs(t, err, ErrScheduleNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
