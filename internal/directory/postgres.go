package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the pool surface the repository needs; pgxmock satisfies it.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores directory entities in the relational database.
type PostgresRepository struct {
	pool PgxPool
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("directory: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// GetDoctorID resolves a doctor by display name. A miss is a hard error; this
// path serves limit checks and assumes the doctor is pre-provisioned.
func (r *PostgresRepository) GetDoctorID(ctx context.Context, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx,
		`SELECT id FROM doctors WHERE name = $1`, name,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("%w: %s", ErrDoctorNotFound, name)
		}
		return uuid.Nil, fmt.Errorf("directory: doctor lookup failed: %w", err)
	}
	return id, nil
}

// FindOrCreateDoctor reconciles a doctor introduced dynamically from call
// content. The (name, specialization) pair is the external key.
func (r *PostgresRepository) FindOrCreateDoctor(ctx context.Context, name, specialization string) (uuid.UUID, error) {
	if strings.TrimSpace(name) == "" {
		return uuid.Nil, errors.New("directory: doctor name is required")
	}

	return findOrCreate(ctx,
		func(ctx context.Context) (uuid.UUID, bool, error) {
			var id uuid.UUID
			err := r.pool.QueryRow(ctx,
				`SELECT id FROM doctors WHERE name = $1 AND specialization = $2`,
				name, specialization,
			).Scan(&id)
			if errors.Is(err, pgx.ErrNoRows) {
				return uuid.Nil, false, nil
			}
			if err != nil {
				return uuid.Nil, false, fmt.Errorf("directory: doctor lookup failed: %w", err)
			}
			return id, true, nil
		},
		func(ctx context.Context) (uuid.UUID, error) {
			id := uuid.New()
			_, err := r.pool.Exec(ctx,
				`INSERT INTO doctors (id, name, specialization) VALUES ($1, $2, $3)`,
				id, name, specialization,
			)
			if err != nil {
				return uuid.Nil, err
			}
			return id, nil
		},
		isUniqueViolation,
	)
}

// ListDoctors returns every doctor with their specialization.
func (r *PostgresRepository) ListDoctors(ctx context.Context) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, specialization FROM doctors ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("directory: list doctors failed: %w", err)
	}
	defer rows.Close()

	var doctors []Doctor
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.Name, &d.Specialization); err != nil {
			return nil, fmt.Errorf("directory: scan doctor: %w", err)
		}
		doctors = append(doctors, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: list doctors failed: %w", err)
	}
	return doctors, nil
}

// FindOrCreatePatient reconciles a patient by name. Existing rows get an
// additive refresh: non-null age/phone from this call overwrite, nulls never
// erase what an earlier call established.
func (r *PostgresRepository) FindOrCreatePatient(ctx context.Context, attrs PatientAttributes) (uuid.UUID, error) {
	if strings.TrimSpace(attrs.Name) == "" {
		return uuid.Nil, ErrPatientRequired
	}

	return findOrCreate(ctx,
		func(ctx context.Context) (uuid.UUID, bool, error) {
			var id uuid.UUID
			err := r.pool.QueryRow(ctx,
				`SELECT id FROM patients WHERE name = $1`, attrs.Name,
			).Scan(&id)
			if errors.Is(err, pgx.ErrNoRows) {
				return uuid.Nil, false, nil
			}
			if err != nil {
				return uuid.Nil, false, fmt.Errorf("directory: patient lookup failed: %w", err)
			}
			if attrs.Age != nil || attrs.PhoneNumber != nil {
				if err := r.refreshPatient(ctx, id, attrs); err != nil {
					return uuid.Nil, false, err
				}
			}
			return id, true, nil
		},
		func(ctx context.Context) (uuid.UUID, error) {
			id := uuid.New()
			_, err := r.pool.Exec(ctx,
				`INSERT INTO patients (id, name, age, phone_number) VALUES ($1, $2, $3, $4)`,
				id, attrs.Name, attrs.Age, attrs.PhoneNumber,
			)
			if err != nil {
				return uuid.Nil, err
			}
			return id, nil
		},
		isUniqueViolation,
	)
}

func (r *PostgresRepository) refreshPatient(ctx context.Context, id uuid.UUID, attrs PatientAttributes) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE patients
		 SET age = COALESCE($2, age),
		     phone_number = COALESCE($3, phone_number),
		     updated_at = now()
		 WHERE id = $1`,
		id, attrs.Age, attrs.PhoneNumber,
	)
	if err != nil {
		return fmt.Errorf("directory: patient refresh failed: %w", err)
	}
	return nil
}

// FindOrCreateHospital reconciles a hospital by name.
func (r *PostgresRepository) FindOrCreateHospital(ctx context.Context, name string, attrs HospitalAttributes) (uuid.UUID, error) {
	if strings.TrimSpace(name) == "" {
		return uuid.Nil, ErrHospitalRequired
	}

	return findOrCreate(ctx,
		func(ctx context.Context) (uuid.UUID, bool, error) {
			var id uuid.UUID
			err := r.pool.QueryRow(ctx,
				`SELECT id FROM hospitals WHERE name = $1`, name,
			).Scan(&id)
			if errors.Is(err, pgx.ErrNoRows) {
				return uuid.Nil, false, nil
			}
			if err != nil {
				return uuid.Nil, false, fmt.Errorf("directory: hospital lookup failed: %w", err)
			}
			return id, true, nil
		},
		func(ctx context.Context) (uuid.UUID, error) {
			id := uuid.New()
			_, err := r.pool.Exec(ctx,
				`INSERT INTO hospitals (id, name, address, phone) VALUES ($1, $2, $3, $4)`,
				id, name, attrs.Address, attrs.Phone,
			)
			if err != nil {
				return uuid.Nil, err
			}
			return id, nil
		},
		isUniqueViolation,
	)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
