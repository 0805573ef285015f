package webhook

import "github.com/voiceclinic/callpilot/internal/scheduling"

// Webhook type discriminator for terminal call reports.
const endOfCallReportType = "end-of-call-report"

// Envelope is the outer payload the voice platform posts when a call ends.
type Envelope struct {
	Message *Message `json:"message"`
}

// Message is the end-of-call report body. Transcript and summary feed the
// extractor; the rest is passed through for observability.
type Message struct {
	Type            string   `json:"type"`
	Transcript      string   `json:"transcript"`
	Analysis        Analysis `json:"analysis"`
	RecordingURL    string   `json:"recording_url"`
	DurationSeconds float64  `json:"duration_seconds"`
	EndedReason     string   `json:"ended_reason"`
}

// Analysis holds the platform's own call summary.
type Analysis struct {
	Summary string `json:"summary"`
}

// FunctionCallEnvelope is the payload for voice-agent tool calls.
type FunctionCallEnvelope struct {
	Type         string        `json:"type"`
	FunctionCall *FunctionCall `json:"functionCall"`
}

// FunctionCall names the tool, its parameters, and the platform's call ID,
// which is echoed back so the agent can correlate the result.
type FunctionCall struct {
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
	ToolCallID string         `json:"toolCallId"`
}

// StringParam extracts a string parameter, empty when absent or non-string.
func (f *FunctionCall) StringParam(key string) string {
	if f == nil || f.Parameters == nil {
		return ""
	}
	s, _ := f.Parameters[key].(string)
	return s
}

// CallReportResponse is the 200 body for a processed end-of-call report.
type CallReportResponse struct {
	Message string     `json:"message"`
	Data    ReportData `json:"data"`
}

// ReportData carries the reconciled identifiers plus pass-through call
// metadata.
type ReportData struct {
	Appointment  *scheduling.Appointment `json:"appointment"`
	PatientID    *string                 `json:"patientId"`
	DoctorID     *string                 `json:"doctorId"`
	RecordingURL string                  `json:"recordingUrl"`
	CallDuration float64                 `json:"callDuration"`
	EndReason    string                  `json:"endReason"`
}

// ToolCallResponse wraps a tool result with its correlation ID.
type ToolCallResponse struct {
	ToolCallID string `json:"toolCallId"`
	Result     any    `json:"result"`
}

// DoctorListing is one entry in the fetchAllDoctors result.
type DoctorListing struct {
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
}

// DoctorsResult is the fetchAllDoctors tool result.
type DoctorsResult struct {
	Doctors []DoctorListing `json:"doctors"`
	Message string          `json:"message"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
