package extraction

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// Errors surfaced by the extraction pipeline.
var (
	// ErrFormat means the model response, after fence stripping, did not
	// start with a JSON object.
	ErrFormat = errors.New("extraction: response is not a JSON object")
	// ErrParse means the response looked like JSON but failed to decode.
	ErrParse = errors.New("extraction: response failed to parse")
	// ErrTimeout means the model call exceeded its deadline.
	ErrTimeout = errors.New("extraction: model call timed out")
	// ErrInvalidRecord means the extracted record violates the schema.
	ErrInvalidRecord = errors.New("extraction: invalid record")
)

// appointmentDuration is the fixed slot length in minutes. Every extracted
// appointment must span exactly this window.
const appointmentDuration = 30

var (
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// CallRecord is the structured result of one call extraction. It lives for a
// single webhook invocation and is never persisted or replayed.
type CallRecord struct {
	Doctor      DoctorInfo      `json:"doctor"`
	Patient     PatientInfo     `json:"patient"`
	Appointment AppointmentInfo `json:"appointment"`
}

// DoctorInfo carries the doctor attributes mentioned on the call.
type DoctorInfo struct {
	Name string `json:"name"`
}

// PatientInfo carries the patient attributes mentioned on the call. Only the
// name is required; age and phone are filled in as later calls supply them.
type PatientInfo struct {
	Name        string  `json:"name"`
	Age         *int    `json:"age"`
	PhoneNumber *string `json:"phoneNumber"`
}

// AppointmentInfo is all-or-nothing: either every field is set or every field
// is nil ("no appointment was discussed").
type AppointmentInfo struct {
	Date      *string `json:"date"`
	StartTime *string `json:"startTime"`
	EndTime   *string `json:"endTime"`
}

// Scheduled reports whether the record carries a complete appointment.
func (a AppointmentInfo) Scheduled() bool {
	return a.Date != nil && a.StartTime != nil && a.EndTime != nil
}

func (a AppointmentInfo) empty() bool {
	return a.Date == nil && a.StartTime == nil && a.EndTime == nil
}

// Validate checks the record against the expected schema. Model output is
// untrusted input; nothing downstream may touch a record that fails here.
func (r *CallRecord) Validate() error {
	if r.Patient.Name == "" {
		return fmt.Errorf("%w: patient name is required", ErrInvalidRecord)
	}

	if r.Appointment.empty() {
		return nil
	}
	if !r.Appointment.Scheduled() {
		return fmt.Errorf("%w: appointment fields must be set together or all null", ErrInvalidRecord)
	}

	if !dateRe.MatchString(*r.Appointment.Date) {
		return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidRecord, *r.Appointment.Date)
	}
	if !timeRe.MatchString(*r.Appointment.StartTime) {
		return fmt.Errorf("%w: startTime %q is not HH:MM", ErrInvalidRecord, *r.Appointment.StartTime)
	}
	if !timeRe.MatchString(*r.Appointment.EndTime) {
		return fmt.Errorf("%w: endTime %q is not HH:MM", ErrInvalidRecord, *r.Appointment.EndTime)
	}

	start := minutesOfDay(*r.Appointment.StartTime)
	end := minutesOfDay(*r.Appointment.EndTime)
	// Appointments are intra-day: a start within 30 minutes of midnight would
	// roll the end into the next day, which the data model cannot express.
	if start+appointmentDuration > 24*60-1 {
		return fmt.Errorf("%w: startTime %q too close to midnight", ErrInvalidRecord, *r.Appointment.StartTime)
	}
	if end-start != appointmentDuration {
		return fmt.Errorf("%w: endTime must be exactly %d minutes after startTime", ErrInvalidRecord, appointmentDuration)
	}
	return nil
}

// minutesOfDay converts an already-validated HH:MM string.
func minutesOfDay(hhmm string) int {
	h, _ := strconv.Atoi(hhmm[:2])
	m, _ := strconv.Atoi(hhmm[3:])
	return h*60 + m
}
