package directory

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Errors raised by reconciliation lookups.
var (
	ErrDoctorNotFound   = errors.New("directory: doctor not found")
	ErrPatientRequired  = errors.New("directory: patient name is required")
	ErrHospitalRequired = errors.New("directory: hospital name is required")
)

// Doctor is a provider row. The (name, specialization) pair is the natural
// key; the identifier is generated on first creation and never changes.
type Doctor struct {
	ID             uuid.UUID
	Name           string
	Specialization string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Patient is looked up by display name (single-tenant assumption). Age and
// phone are refined over time: updates only fill gaps or overwrite with newer
// non-null values, never erase.
type Patient struct {
	ID          uuid.UUID
	Name        string
	Age         *int
	PhoneNumber *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Hospital is keyed by name.
type Hospital struct {
	ID      uuid.UUID
	Name    string
	Address *string
	Phone   *string
}

// PatientAttributes are the reconcilable patient fields from one call.
type PatientAttributes struct {
	Name        string
	Age         *int
	PhoneNumber *string
}

// HospitalAttributes are the reconcilable hospital fields.
type HospitalAttributes struct {
	Address *string
	Phone   *string
}
