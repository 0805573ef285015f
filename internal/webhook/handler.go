package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/voiceclinic/callpilot/internal/directory"
	"github.com/voiceclinic/callpilot/internal/extraction"
	"github.com/voiceclinic/callpilot/internal/observability/metrics"
	"github.com/voiceclinic/callpilot/internal/scheduling"
	"github.com/voiceclinic/callpilot/pkg/logging"
)

// Function identifiers the voice agent's tools call us with.
const (
	fnCheckAppointmentLimit = "checkAppointmentLimit"
	fnFetchAllDoctors       = "fetchAllDoctors"
)

// Extractor turns call text into a structured record.
type Extractor interface {
	Extract(ctx context.Context, transcript, summary string) (*extraction.CallRecord, error)
}

// Scheduler gates and writes appointments.
type Scheduler interface {
	CanSchedule(ctx context.Context, doctorID uuid.UUID, doctorName, date string) (scheduling.Decision, error)
	Book(ctx context.Context, doctorID, patientID uuid.UUID, slot scheduling.Slot) (*scheduling.Appointment, error)
}

// Handler is the boundary against the hosting HTTP layer: it sequences
// extract, reconcile, capacity check, and write, and is the only place where
// pipeline failures become transport responses.
type Handler struct {
	extractor Extractor
	directory directory.Repository
	scheduler Scheduler
	logger    *logging.Logger
	metrics   *metrics.WebhookMetrics

	// autoProvision switches the doctor step from strict lookup to
	// find-or-create for deployments where call content introduces doctors.
	autoProvision bool
}

// NewHandler constructs the webhook handler.
func NewHandler(extractor Extractor, dir directory.Repository, scheduler Scheduler, autoProvision bool, m *metrics.WebhookMetrics, logger *logging.Logger) *Handler {
	if extractor == nil {
		panic("webhook: extractor required")
	}
	if dir == nil {
		panic("webhook: directory repository required")
	}
	if scheduler == nil {
		panic("webhook: scheduler required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		extractor:     extractor,
		directory:     dir,
		scheduler:     scheduler,
		logger:        logger,
		metrics:       m,
		autoProvision: autoProvision,
	}
}

// HandleEndOfCall processes the terminal call report: extraction, entity
// reconciliation, capacity gate, appointment write, in that order. A failure
// at any stage aborts the rest; partial upserts already committed stay in
// place.
func (h *Handler) HandleEndOfCall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload Envelope
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Message == nil {
		h.metrics.ObserveReport("bad_payload")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid webhook payload"})
		return
	}

	if payload.Message.Type != endOfCallReportType {
		h.logger.Warn("unexpected webhook type", "type", payload.Message.Type)
		h.metrics.ObserveReport("invalid_type")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid webhook type"})
		return
	}

	ctx := r.Context()

	start := time.Now()
	record, err := h.extractor.Extract(ctx, payload.Message.Transcript, payload.Message.Analysis.Summary)
	h.metrics.ObserveExtractionLatency(time.Since(start).Seconds())
	if err != nil {
		h.fail(w, "extract", err)
		return
	}

	if err := record.Validate(); err != nil {
		h.fail(w, "validate", err)
		return
	}

	patientID, err := h.directory.FindOrCreatePatient(ctx, directory.PatientAttributes{
		Name:        record.Patient.Name,
		Age:         record.Patient.Age,
		PhoneNumber: record.Patient.PhoneNumber,
	})
	if err != nil {
		h.fail(w, "reconcile patient", err)
		return
	}

	data := ReportData{
		PatientID:    strPtr(patientID.String()),
		RecordingURL: payload.Message.RecordingURL,
		CallDuration: payload.Message.DurationSeconds,
		EndReason:    payload.Message.EndedReason,
	}

	// A call that mentioned no doctor and booked nothing is still a valid
	// outcome; only a booking attempt makes the doctor mandatory.
	if record.Doctor.Name == "" && !record.Appointment.Scheduled() {
		h.metrics.ObserveReport("no_appointment")
		writeJSON(w, http.StatusOK, CallReportResponse{Message: "No appointment scheduled", Data: data})
		return
	}

	doctorID, err := h.resolveDoctor(ctx, record.Doctor.Name)
	if err != nil {
		h.fail(w, "resolve doctor", err)
		return
	}
	data.DoctorID = strPtr(doctorID.String())

	if record.Appointment.Scheduled() {
		decision, err := h.scheduler.CanSchedule(ctx, doctorID, record.Doctor.Name, *record.Appointment.Date)
		if err != nil {
			h.fail(w, "capacity check", err)
			return
		}
		if !decision.Allowed {
			h.metrics.ObserveReport("capacity_rejected")
			h.metrics.ObserveAppointment("rejected")
			writeJSON(w, http.StatusOK, CallReportResponse{Message: decision.Message, Data: data})
			return
		}
	}

	appt, err := h.scheduler.Book(ctx, doctorID, patientID, scheduling.Slot{
		Date:      record.Appointment.Date,
		StartTime: record.Appointment.StartTime,
		EndTime:   record.Appointment.EndTime,
	})
	if err != nil {
		// Lost the recheck race inside the lock: same negative result as the
		// gate, not a server error.
		if errors.Is(err, scheduling.ErrCapacityExceeded) {
			h.metrics.ObserveReport("capacity_rejected")
			h.metrics.ObserveAppointment("rejected")
			writeJSON(w, http.StatusOK, CallReportResponse{
				Message: fmt.Sprintf("%s has reached the maximum of %d appointments on %s. Please choose another date.", record.Doctor.Name, scheduling.DefaultDailyCap, *record.Appointment.Date),
				Data:    data,
			})
			return
		}
		h.fail(w, "create appointment", err)
		return
	}

	message := "No appointment scheduled"
	if appt != nil {
		message = "Appointment created successfully"
		data.Appointment = appt
		h.metrics.ObserveReport("created")
		h.metrics.ObserveAppointment("created")
	} else {
		h.metrics.ObserveReport("no_appointment")
		h.metrics.ObserveAppointment("skipped")
	}

	writeJSON(w, http.StatusOK, CallReportResponse{Message: message, Data: data})
}

func (h *Handler) resolveDoctor(ctx context.Context, name string) (uuid.UUID, error) {
	if h.autoProvision {
		return h.directory.FindOrCreateDoctor(ctx, name, "")
	}
	return h.directory.GetDoctorID(ctx, name)
}

// HandleCheckAppointmentLimit serves the checkAppointmentLimit tool call.
func (h *Handler) HandleCheckAppointmentLimit(w http.ResponseWriter, r *http.Request) {
	call, ok := h.decodeFunctionCall(w, r, fnCheckAppointmentLimit)
	if !ok {
		return
	}

	doctorName := call.StringParam("doctorName")
	date := call.StringParam("date")
	if doctorName == "" || date == "" {
		h.metrics.ObserveToolCall(fnCheckAppointmentLimit, "missing_params")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "doctorName and date are required"})
		return
	}

	ctx := r.Context()
	doctorID, err := h.directory.GetDoctorID(ctx, doctorName)
	if err != nil {
		h.metrics.ObserveToolCall(fnCheckAppointmentLimit, "error")
		h.logger.Error("check appointment limit failed", "doctor", doctorName, "date", date, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error", Details: err.Error()})
		return
	}

	decision, err := h.scheduler.CanSchedule(ctx, doctorID, doctorName, date)
	if err != nil {
		h.metrics.ObserveToolCall(fnCheckAppointmentLimit, "error")
		h.logger.Error("check appointment limit failed", "doctor", doctorName, "date", date, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error", Details: err.Error()})
		return
	}

	h.metrics.ObserveToolCall(fnCheckAppointmentLimit, "ok")
	writeJSON(w, http.StatusOK, ToolCallResponse{ToolCallID: call.ToolCallID, Result: decision})
}

// HandleFetchAllDoctors serves the fetchAllDoctors tool call.
func (h *Handler) HandleFetchAllDoctors(w http.ResponseWriter, r *http.Request) {
	call, ok := h.decodeFunctionCall(w, r, fnFetchAllDoctors)
	if !ok {
		return
	}

	doctors, err := h.directory.ListDoctors(r.Context())
	if err != nil {
		h.metrics.ObserveToolCall(fnFetchAllDoctors, "error")
		h.logger.Error("fetch all doctors failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error", Details: err.Error()})
		return
	}

	result := DoctorsResult{Doctors: make([]DoctorListing, 0, len(doctors))}
	for _, d := range doctors {
		result.Doctors = append(result.Doctors, DoctorListing{Name: d.Name, Specialization: d.Specialization})
	}
	if len(result.Doctors) == 0 {
		result.Message = "No doctors are available in the system."
	} else {
		result.Message = fmt.Sprintf("%d doctor(s) found in the system.", len(result.Doctors))
	}

	h.metrics.ObserveToolCall(fnFetchAllDoctors, "ok")
	writeJSON(w, http.StatusOK, ToolCallResponse{ToolCallID: call.ToolCallID, Result: result})
}

// decodeFunctionCall validates the tool-call envelope shape and function
// name, writing the 4xx itself when they do not match.
func (h *Handler) decodeFunctionCall(w http.ResponseWriter, r *http.Request, expected string) (*FunctionCall, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return nil, false
	}

	var payload FunctionCallEnvelope
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Type != "function-call" || payload.FunctionCall == nil {
		h.metrics.ObserveToolCall(expected, "bad_payload")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request type, expected function-call"})
		return nil, false
	}

	if payload.FunctionCall.Name != expected {
		h.metrics.ObserveToolCall(expected, "wrong_function")
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("Invalid function name: %s, expected %s", payload.FunctionCall.Name, expected),
		})
		return nil, false
	}

	return payload.FunctionCall, true
}

// fail logs the stage and collapses the error into a generic 500. Details
// carry the error string for diagnosis; never stack traces or credentials.
func (h *Handler) fail(w http.ResponseWriter, stage string, err error) {
	h.logger.Error("webhook processing failed", "stage", stage, "error", err)
	h.metrics.ObserveReport("error")
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error", Details: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func strPtr(s string) *string { return &s }
