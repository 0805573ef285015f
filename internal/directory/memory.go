package directory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository is a Repository backed by maps, used in tests and local
// runs without a database.
type InMemoryRepository struct {
	mu        sync.Mutex
	doctors   map[string]*Doctor // keyed by name|specialization
	patients  map[string]*Patient
	hospitals map[string]*Hospital
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		doctors:   make(map[string]*Doctor),
		patients:  make(map[string]*Patient),
		hospitals: make(map[string]*Hospital),
	}
}

// SeedDoctor registers a pre-provisioned doctor and returns its ID.
func (r *InMemoryRepository) SeedDoctor(name, specialization string) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := &Doctor{
		ID:             uuid.New(),
		Name:           name,
		Specialization: specialization,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	r.doctors[doctorKey(name, specialization)] = d
	return d.ID
}

func doctorKey(name, specialization string) string {
	return name + "|" + specialization
}

// GetDoctorID resolves a doctor strictly by name.
func (r *InMemoryRepository) GetDoctorID(ctx context.Context, name string) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.doctors {
		if d.Name == name {
			return d.ID, nil
		}
	}
	return uuid.Nil, fmt.Errorf("%w: %s", ErrDoctorNotFound, name)
}

// FindOrCreateDoctor reconciles by (name, specialization).
func (r *InMemoryRepository) FindOrCreateDoctor(ctx context.Context, name, specialization string) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.doctors[doctorKey(name, specialization)]; ok {
		return d.ID, nil
	}
	d := &Doctor{
		ID:             uuid.New(),
		Name:           name,
		Specialization: specialization,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	r.doctors[doctorKey(name, specialization)] = d
	return d.ID, nil
}

// ListDoctors returns all doctors.
func (r *InMemoryRepository) ListDoctors(ctx context.Context) ([]Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doctors := make([]Doctor, 0, len(r.doctors))
	for _, d := range r.doctors {
		doctors = append(doctors, *d)
	}
	return doctors, nil
}

// FindOrCreatePatient reconciles by name with additive field refresh.
func (r *InMemoryRepository) FindOrCreatePatient(ctx context.Context, attrs PatientAttributes) (uuid.UUID, error) {
	if attrs.Name == "" {
		return uuid.Nil, ErrPatientRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.patients[attrs.Name]; ok {
		if attrs.Age != nil {
			p.Age = attrs.Age
		}
		if attrs.PhoneNumber != nil {
			p.PhoneNumber = attrs.PhoneNumber
		}
		if attrs.Age != nil || attrs.PhoneNumber != nil {
			p.UpdatedAt = time.Now().UTC()
		}
		return p.ID, nil
	}
	p := &Patient{
		ID:          uuid.New(),
		Name:        attrs.Name,
		Age:         attrs.Age,
		PhoneNumber: attrs.PhoneNumber,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	r.patients[attrs.Name] = p
	return p.ID, nil
}

// FindOrCreateHospital reconciles by name.
func (r *InMemoryRepository) FindOrCreateHospital(ctx context.Context, name string, attrs HospitalAttributes) (uuid.UUID, error) {
	if name == "" {
		return uuid.Nil, ErrHospitalRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.hospitals[name]; ok {
		return h.ID, nil
	}
	h := &Hospital{ID: uuid.New(), Name: name, Address: attrs.Address, Phone: attrs.Phone}
	r.hospitals[name] = h
	return h.ID, nil
}

// Patient returns a stored patient by name, for test assertions.
func (r *InMemoryRepository) Patient(name string) (*Patient, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[name]
	if !ok {
		return nil, false
	}
	cp := *p
	return &cp, true
}
