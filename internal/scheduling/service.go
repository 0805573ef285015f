package scheduling

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/voiceclinic/callpilot/pkg/logging"
)

var schedulingTracer = otel.Tracer("callpilot.internal.scheduling")

// Service enforces the daily cap and writes appointments.
type Service struct {
	store    Store
	locker   Locker
	dailyCap int
	logger   *logging.Logger
}

// NewService constructs a scheduling service.
func NewService(store Store, locker Locker, dailyCap int, logger *logging.Logger) *Service {
	if store == nil {
		panic("scheduling: store required")
	}
	if locker == nil {
		locker = NewMutexLocker()
	}
	if dailyCap <= 0 {
		dailyCap = DefaultDailyCap
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, locker: locker, dailyCap: dailyCap, logger: logger}
}

// CanSchedule is the read-only capacity gate: it counts existing appointments
// for (doctor, date) and answers with a human-readable message. It does not
// reserve a slot; Book re-checks under the lock before writing.
func (s *Service) CanSchedule(ctx context.Context, doctorID uuid.UUID, doctorName, date string) (Decision, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.can_schedule")
	defer span.End()
	span.SetAttributes(
		attribute.String("callpilot.doctor_id", doctorID.String()),
		attribute.String("callpilot.date", date),
	)

	count, err := s.store.CountOnDate(ctx, doctorID, date)
	if err != nil {
		span.RecordError(err)
		return Decision{}, err
	}

	s.logger.Debug("appointment count for doctor on date",
		"doctor", doctorName, "date", date, "count", count)

	if count >= s.dailyCap {
		return Decision{
			Allowed: false,
			Message: fmt.Sprintf("%s has reached the maximum of %d appointments on %s. Please choose another date.", doctorName, s.dailyCap, date),
		}, nil
	}
	return Decision{
		Allowed: true,
		Message: fmt.Sprintf("%s can schedule an appointment on %s.", doctorName, date),
	}, nil
}

// Book persists the appointment for a complete slot. A partial or empty slot
// returns (nil, nil): "no appointment was discussed" is a successful outcome.
// The recheck-and-insert runs inside the per-(doctor, date) lock so two
// concurrent calls cannot both observe count=cap-1 and oversubscribe.
func (s *Service) Book(ctx context.Context, doctorID, patientID uuid.UUID, slot Slot) (*Appointment, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.book")
	defer span.End()

	if !slot.Complete() {
		s.logger.Debug("no appointment data provided, skipping creation",
			"doctor_id", doctorID, "patient_id", patientID)
		return nil, nil
	}

	appt := &Appointment{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		PatientID: patientID,
		Date:      *slot.Date,
		StartTime: *slot.StartTime,
		EndTime:   *slot.EndTime,
	}
	span.SetAttributes(
		attribute.String("callpilot.doctor_id", doctorID.String()),
		attribute.String("callpilot.date", appt.Date),
	)

	err := s.locker.WithLock(ctx, doctorID, appt.Date, func(ctx context.Context) error {
		count, err := s.store.CountOnDate(ctx, doctorID, appt.Date)
		if err != nil {
			return err
		}
		if count >= s.dailyCap {
			return ErrCapacityExceeded
		}
		return s.store.CreateAppointment(ctx, appt)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.logger.Info("appointment created",
		"appointment_id", appt.ID,
		"doctor_id", doctorID,
		"patient_id", patientID,
		"date", appt.Date,
		"start_time", appt.StartTime,
	)
	return appt, nil
}
