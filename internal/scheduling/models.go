package scheduling

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Errors raised by the scheduling layer.
var (
	// ErrCapacityExceeded means the (doctor, date) pair is at its daily cap.
	// It is a normal negative outcome, not a store failure.
	ErrCapacityExceeded = errors.New("scheduling: daily appointment cap reached")
	// ErrLockNotAcquired means another invocation holds the (doctor, date)
	// critical section.
	ErrLockNotAcquired = errors.New("scheduling: lock not acquired")
)

// DefaultDailyCap is the fixed per-(doctor, date) appointment limit.
const DefaultDailyCap = 5

// Appointment links a doctor and patient to a 30-minute window. Times are
// local HH:MM strings; no timezone is carried.
type Appointment struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctorId"`
	PatientID uuid.UUID `json:"patientId"`
	Date      string    `json:"date"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
	CreatedAt time.Time `json:"createdAt"`
}

// Slot is the extracted date/time window for a booking attempt. A partially
// filled slot means no appointment was discussed.
type Slot struct {
	Date      *string
	StartTime *string
	EndTime   *string
}

// Complete reports whether all three fields were extracted.
func (s Slot) Complete() bool {
	return s.Date != nil && s.StartTime != nil && s.EndTime != nil
}

// Decision is the capacity gate's answer for a (doctor, date) pair.
type Decision struct {
	Allowed bool   `json:"canSchedule"`
	Message string `json:"message"`
}
