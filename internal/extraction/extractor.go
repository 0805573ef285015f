package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/voiceclinic/callpilot/pkg/logging"
)

var extractionTracer = otel.Tracer("callpilot.internal.extraction")

const promptTemplate = `Extract ONLY the following key information from this appointment conversation summary and transcript. Return a JSON object with these fields:
{
  "doctor": {
    "name": string (extract full name including Dr. title if present)
  },
  "patient": {
    "name": string (extract full name),
    "age": number (extract age if mentioned, null if not),
    "phoneNumber": string (extract phone number if mentioned, digits only, null if not)
  },
  "appointment": {
    "date": string (YYYY-MM-DD format, null if not scheduled),
    "startTime": string (HH:MM format in 24-hour time, null if not scheduled),
    "endTime": string (HH:MM format, 30 minutes after startTime, null if not scheduled)
  }
}

Summary: %s

Transcript excerpts:
%s

Rules:
- Convert all times to 24-hour format
- Format phone numbers as strings with just digits (no spaces or special characters)
- Use the current year (%d) if year is not specified in the date
- Ensure appointment endTime is exactly 30 minutes after startTime
- If no appointment was scheduled, set appointment fields to null
- Return ONLY the JSON object, no markdown or code block syntax`

// Extractor turns unstructured call text into a CallRecord via an LLM. The
// model is treated as a pure, untrusted function: one malformed response fails
// the current invocation.
type Extractor struct {
	client  LLMClient
	timeout time.Duration
	logger  *logging.Logger
	now     func() time.Time
}

// NewExtractor constructs an extractor around an LLM client.
func NewExtractor(client LLMClient, timeout time.Duration, logger *logging.Logger) *Extractor {
	if client == nil {
		panic("extraction: llm client required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Extractor{
		client:  client,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Extract prompts the model over the transcript and summary and parses the
// response into a structured record. The record is NOT validated here; callers
// route it through CallRecord.Validate before trusting it.
func (e *Extractor) Extract(ctx context.Context, transcript, summary string) (*CallRecord, error) {
	ctx, span := extractionTracer.Start(ctx, "extraction.extract")
	defer span.End()

	prompt := e.buildPrompt(transcript, summary)

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	raw, err := e.client.Generate(callCtx, prompt)
	latency := time.Since(start)
	span.SetAttributes(attribute.Float64("callpilot.llm.latency_ms", float64(latency.Milliseconds())))
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("extraction: model call failed: %w", err)
	}

	record, err := parseResponse(raw)
	if err != nil {
		span.RecordError(err)
		e.logger.Error("extraction failed", "error", err, "raw_length", len(raw))
		return nil, err
	}

	e.logger.Debug("structured data extracted",
		"patient", record.Patient.Name,
		"doctor", record.Doctor.Name,
		"scheduled", record.Appointment.Scheduled(),
	)
	return record, nil
}

func (e *Extractor) buildPrompt(transcript, summary string) string {
	return fmt.Sprintf(promptTemplate, summary, transcript, e.now().Year())
}

// parseResponse strips markdown code fences the model sometimes wraps its
// output in, then decodes the JSON object.
func parseResponse(raw string) (*CallRecord, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if !strings.HasPrefix(text, "{") {
		return nil, ErrFormat
	}

	var record CallRecord
	if err := json.Unmarshal([]byte(text), &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return &record, nil
}
