package directory

import (
	"context"

	"github.com/google/uuid"
)

// Repository reconciles call-mentioned entities against stored rows. Every
// FindOrCreate is idempotent: the same natural key always resolves to the
// same identifier, with at most one row ever created for it.
type Repository interface {
	// GetDoctorID is the strict lookup used when doctors are assumed
	// pre-provisioned. A miss is ErrDoctorNotFound.
	GetDoctorID(ctx context.Context, name string) (uuid.UUID, error)
	// FindOrCreateDoctor reconciles a doctor mentioned in call content.
	FindOrCreateDoctor(ctx context.Context, name, specialization string) (uuid.UUID, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)

	// FindOrCreatePatient reconciles by name, additively updating age and
	// phone on existing rows.
	FindOrCreatePatient(ctx context.Context, attrs PatientAttributes) (uuid.UUID, error)

	FindOrCreateHospital(ctx context.Context, name string, attrs HospitalAttributes) (uuid.UUID, error)
}

// findOrCreate runs the shared lookup-then-insert control flow. Concurrent
// callers may both miss the lookup and both insert; the store's uniqueness
// constraint arbitrates, and the loser re-reads the winner's row.
func findOrCreate(
	ctx context.Context,
	lookup func(context.Context) (uuid.UUID, bool, error),
	insert func(context.Context) (uuid.UUID, error),
	isConflict func(error) bool,
) (uuid.UUID, error) {
	id, found, err := lookup(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if found {
		return id, nil
	}

	id, err = insert(ctx)
	if err == nil {
		return id, nil
	}
	if !isConflict(err) {
		return uuid.Nil, err
	}

	id, found, lookupErr := lookup(ctx)
	if lookupErr != nil {
		return uuid.Nil, lookupErr
	}
	if !found {
		// Conflicting row vanished between insert and re-read.
		return uuid.Nil, err
	}
	return id, nil
}
