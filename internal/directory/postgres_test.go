package directory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresRepository(mock), mock
}

func intp(i int) *int       { return &i }
func strp(s string) *string { return &s }

func TestGetDoctorIDFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT id FROM doctors").
		WithArgs("Dr. Smith").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))

	got, err := repo.GetDoctorID(context.Background(), "Dr. Smith")
	require.NoError(t, err)
	assert.Equal(t, id, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDoctorIDMissIsHardError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT id FROM doctors").
		WithArgs("Dr. Nobody").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetDoctorID(context.Background(), "Dr. Nobody")
	require.ErrorIs(t, err, ErrDoctorNotFound)
	assert.Contains(t, err.Error(), "Dr. Nobody")
}

func TestFindOrCreatePatientExistingGetsAdditiveRefresh(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT id FROM patients").
		WithArgs("Jane Doe").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))
	mock.ExpectExec("UPDATE patients").
		WithArgs(id, intp(34), (*string)(nil)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	got, err := repo.FindOrCreatePatient(context.Background(), PatientAttributes{
		Name: "Jane Doe",
		Age:  intp(34),
	})
	require.NoError(t, err)
	assert.Equal(t, id, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOrCreatePatientNoRefreshWithoutNewFields(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT id FROM patients").
		WithArgs("Jane Doe").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))

	got, err := repo.FindOrCreatePatient(context.Background(), PatientAttributes{Name: "Jane Doe"})
	require.NoError(t, err)
	assert.Equal(t, id, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOrCreatePatientInsertsWhenMissing(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT id FROM patients").
		WithArgs("Jane Doe").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO patients").
		WithArgs(pgxmock.AnyArg(), "Jane Doe", intp(34), strp("5551234567")).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	got, err := repo.FindOrCreatePatient(context.Background(), PatientAttributes{
		Name:        "Jane Doe",
		Age:         intp(34),
		PhoneNumber: strp("5551234567"),
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOrCreatePatientConflictRereads(t *testing.T) {
	repo, mock := newMockRepo(t)
	winner := uuid.New()

	// Both callers miss the lookup; this one loses the insert race and must
	// come back with the winner's row.
	mock.ExpectQuery("SELECT id FROM patients").
		WithArgs("Jane Doe").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO patients").
		WithArgs(pgxmock.AnyArg(), "Jane Doe", (*int)(nil), (*string)(nil)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "patients_name_key"})
	mock.ExpectQuery("SELECT id FROM patients").
		WithArgs("Jane Doe").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(winner))

	got, err := repo.FindOrCreatePatient(context.Background(), PatientAttributes{Name: "Jane Doe"})
	require.NoError(t, err)
	assert.Equal(t, winner, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOrCreatePatientRequiresName(t *testing.T) {
	repo, _ := newMockRepo(t)
	_, err := repo.FindOrCreatePatient(context.Background(), PatientAttributes{})
	require.ErrorIs(t, err, ErrPatientRequired)
}

func TestFindOrCreateDoctorConflictRereads(t *testing.T) {
	repo, mock := newMockRepo(t)
	winner := uuid.New()

	mock.ExpectQuery("SELECT id FROM doctors").
		WithArgs("Dr. Smith", "Cardiology").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO doctors").
		WithArgs(pgxmock.AnyArg(), "Dr. Smith", "Cardiology").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectQuery("SELECT id FROM doctors").
		WithArgs("Dr. Smith", "Cardiology").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(winner))

	got, err := repo.FindOrCreateDoctor(context.Background(), "Dr. Smith", "Cardiology")
	require.NoError(t, err)
	assert.Equal(t, winner, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListDoctors(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT id, name, specialization FROM doctors").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "specialization"}).
			AddRow(uuid.New(), "Dr. Adams", "Dermatology").
			AddRow(uuid.New(), "Dr. Smith", "Cardiology"))

	doctors, err := repo.ListDoctors(context.Background())
	require.NoError(t, err)
	require.Len(t, doctors, 2)
	assert.Equal(t, "Dr. Adams", doctors[0].Name)
	assert.Equal(t, "Cardiology", doctors[1].Specialization)
}

func TestFindOrCreateHospitalInserts(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT id FROM hospitals").
		WithArgs("General Hospital").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO hospitals").
		WithArgs(pgxmock.AnyArg(), "General Hospital", strp("1 Main St"), (*string)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	got, err := repo.FindOrCreateHospital(context.Background(), "General Hospital", HospitalAttributes{
		Address: strp("1 Main St"),
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, got)
	require.NoError(t, mock.ExpectationsWereMet())
}
