package scheduling

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresStore(mock), mock
}

func TestCountOnDate(t *testing.T) {
	store, mock := newMockStore(t)
	doctorID := uuid.New()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(doctorID, "2025-06-01").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(4))

	count, err := store.CountOnDate(context.Background(), doctorID, "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAppointmentWritesMirrorInOneTx(t *testing.T) {
	store, mock := newMockStore(t)
	appt := &Appointment{
		ID:        uuid.New(),
		DoctorID:  uuid.New(),
		PatientID: uuid.New(),
		Date:      "2025-06-01",
		StartTime: "14:00",
		EndTime:   "14:30",
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(appt.ID, appt.DoctorID, appt.PatientID, appt.Date, appt.StartTime, appt.EndTime).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(appt.CreatedAt))
	mock.ExpectExec("INSERT INTO doctor_availability").
		WithArgs(pgxmock.AnyArg(), appt.DoctorID, appt.ID, appt.Date, appt.StartTime, appt.EndTime).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, store.CreateAppointment(context.Background(), appt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAppointmentRollsBackOnMirrorFailure(t *testing.T) {
	store, mock := newMockStore(t)
	appt := &Appointment{
		ID:        uuid.New(),
		DoctorID:  uuid.New(),
		PatientID: uuid.New(),
		Date:      "2025-06-01",
		StartTime: "14:00",
		EndTime:   "14:30",
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(appt.ID, appt.DoctorID, appt.PatientID, appt.Date, appt.StartTime, appt.EndTime).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(appt.CreatedAt))
	mock.ExpectExec("INSERT INTO doctor_availability").
		WithArgs(pgxmock.AnyArg(), appt.DoctorID, appt.ID, appt.Date, appt.StartTime, appt.EndTime).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.CreateAppointment(context.Background(), appt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert availability")
	require.NoError(t, mock.ExpectationsWereMet())
}
