package directory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDoctorInClinic(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	clinicID, doctorID := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT id, clinic_id, name, specialty").
		WithArgs(doctorID, clinicID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "clinic_id", "name", "specialty"}).
			AddRow(doctorID, clinicID, "Dr. Rivera", "Cardiology"))

	d, err := repo.GetDoctorInClinic(context.Background(), clinicID, doctorID)
	require.NoError(t, err)
	assert.Equal(t, "Cardiology", d.Specialty)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDoctorInOtherClinicIsNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	clinicID, doctorID := uuid.New(), uuid.New()
	mock.ExpectQuery("FROM doctors").
		WithArgs(doctorID, clinicID).
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.GetDoctorInClinic(context.Background(), clinicID, doctorID)
	assert.ErrorIs(t, err, ErrDoctorNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDoctorServiceInClinicNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	clinicID, serviceID := uuid.New(), uuid.New()
	mock.ExpectQuery("FROM doctor_services").
		WithArgs(serviceID, clinicID).
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.GetDoctorServiceInClinic(context.Background(), clinicID, serviceID)
	assert.ErrorIs(t, err, ErrDoctorServiceNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountDoctorsInClinic(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	clinicID := uuid.New()
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	mock.ExpectQuery(`SELECT count\(\*\)`).
		WithArgs(clinicID, ids).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	n, err := repo.CountDoctorsInClinic(context.Background(), clinicID, ids)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.CountDoctorsInClinic(context.Background(), clinicID, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
