package scheduling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Store is the persistence surface the scheduler needs.
type Store interface {
	// CountOnDate counts appointment rows matching (doctorID, date) exactly.
	CountOnDate(ctx context.Context, doctorID uuid.UUID, date string) (int, error)
	// CreateAppointment inserts the appointment and its mirrored
	// doctor-availability row atomically.
	CreateAppointment(ctx context.Context, appt *Appointment) error
}

// PgxPool is the pool surface the postgres store needs; pgxmock satisfies it.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists appointments in the relational database.
type PostgresStore struct {
	pool PgxPool
}

// NewPostgresStore initializes a store backed by pgx.
func NewPostgresStore(pool PgxPool) *PostgresStore {
	if pool == nil {
		panic("scheduling: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

// CountOnDate counts existing appointments for the doctor on the given date.
func (s *PostgresStore) CountOnDate(ctx context.Context, doctorID uuid.UUID, date string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM appointments WHERE doctor_id = $1 AND date = $2`,
		doctorID, date,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("scheduling: count appointments: %w", err)
	}
	return count, nil
}

// CreateAppointment writes the appointment row and the availability mirror in
// one transaction so the two never diverge.
func (s *PostgresStore) CreateAppointment(ctx context.Context, appt *Appointment) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("scheduling: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.QueryRow(ctx,
		`INSERT INTO appointments (id, doctor_id, patient_id, date, start_time, end_time)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		appt.ID, appt.DoctorID, appt.PatientID, appt.Date, appt.StartTime, appt.EndTime,
	).Scan(&appt.CreatedAt); err != nil {
		return fmt.Errorf("scheduling: insert appointment: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO doctor_availability (id, doctor_id, appointment_id, date, start_time, end_time)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), appt.DoctorID, appt.ID, appt.Date, appt.StartTime, appt.EndTime,
	); err != nil {
		return fmt.Errorf("scheduling: insert availability: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("scheduling: commit: %w", err)
	}
	return nil
}

// MemoryStore keeps appointments in a map, for tests and local runs.
type MemoryStore struct {
	mu   sync.Mutex
	rows []Appointment
}

// NewMemoryStore creates an empty in-memory appointment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// CountOnDate counts stored rows for (doctorID, date).
func (m *MemoryStore) CountOnDate(ctx context.Context, doctorID uuid.UUID, date string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, a := range m.rows {
		if a.DoctorID == doctorID && a.Date == date {
			count++
		}
	}
	return count, nil
}

// CreateAppointment appends the row.
func (m *MemoryStore) CreateAppointment(ctx context.Context, appt *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	appt.CreatedAt = time.Now().UTC()
	m.rows = append(m.rows, *appt)
	return nil
}

// Appointments returns a copy of all stored rows, for test assertions.
func (m *MemoryStore) Appointments() []Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Appointment, len(m.rows))
	copy(out, m.rows)
	return out
}
